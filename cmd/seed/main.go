// Command seed fills a development database with fake users, posts and
// comments. Comments from other users raise notifications the same way the
// API does.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"backend-twitter/internal/auth"
	"backend-twitter/internal/config"
	"backend-twitter/internal/db"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/post"
	"backend-twitter/internal/server"
	"backend-twitter/internal/session"
	"backend-twitter/internal/tags"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/viper"
)

const seedPassword = "password1"

type options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	Seed            int64
}

func loadOptions() options {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SEED_USERS", 5)
	v.SetDefault("SEED_POSTS_PER_USER", 3)
	v.SetDefault("SEED_COMMENTS_PER_POST", 2)
	v.SetDefault("SEED_RANDOM", 0)
	return options{
		Users:           v.GetInt("SEED_USERS"),
		PostsPerUser:    v.GetInt("SEED_POSTS_PER_USER"),
		CommentsPerPost: v.GetInt("SEED_COMMENTS_PER_POST"),
		Seed:            v.GetInt64("SEED_RANDOM"),
	}
}

type registrar interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.User, auth.TokenResponse, error)
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

type poster interface {
	Create(ctx context.Context, tr *i18n.Translator, sess session.Session, in post.CreateInput) (post.Result, error)
	AddComment(ctx context.Context, tr *i18n.Translator, sess session.Session, in post.CommentInput) (post.Result, error)
}

type summary struct {
	Users    int
	Posts    int
	Comments int
}

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := slog.Default()

	pg, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(cfg, server.Deps{DB: pg, Redis: db.ConnectRedis(cfg), Logger: logger})
	sum, err := seed(ctx, i18n.New(cfg.Locale), srv.Auth, srv.Posts, loadOptions(), logger)
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "users", sum.Users, "posts", sum.Posts, "comments", sum.Comments)
}

func seed(ctx context.Context, tr *i18n.Translator, users registrar, posts poster, opts options, logger *slog.Logger) (summary, error) {
	faker := gofakeit.New(opts.Seed)
	var (
		sum      summary
		sessions []session.Session
		postIDs  []string
	)

	for i := 0; i < opts.Users; i++ {
		u, tokens, err := users.Register(ctx, auth.RegisterRequest{
			Email:       fmt.Sprintf("%d.%s", i, faker.Email()),
			Password:    seedPassword,
			DisplayName: faker.Name(),
		})
		if err != nil {
			return sum, fmt.Errorf("register user %d: %w", i, err)
		}
		sess, err := users.Authenticate(ctx, tokens.AccessToken)
		if err != nil {
			return sum, fmt.Errorf("authenticate %s: %w", u.Email, err)
		}
		sessions = append(sessions, sess)
		sum.Users++
		logger.Debug("seeded user", "email", u.Email)
	}

	for _, sess := range sessions {
		for j := 0; j < opts.PostsPerUser; j++ {
			res, err := posts.Create(ctx, tr, sess, post.CreateInput{
				Content:  faker.Sentence(12),
				HashTags: hashTags(faker, 3),
			})
			if err != nil {
				return sum, fmt.Errorf("create post for %s: %w", sess.UID, err)
			}
			postIDs = append(postIDs, res.Post.ID)
			sum.Posts++
		}
	}

	if len(sessions) == 0 {
		return sum, nil
	}
	for _, id := range postIDs {
		for k := 0; k < opts.CommentsPerPost; k++ {
			commenter := sessions[faker.Number(0, len(sessions)-1)]
			if _, err := posts.AddComment(ctx, tr, commenter, post.CommentInput{PostID: id, Comment: faker.Sentence(6)}); err != nil {
				return sum, fmt.Errorf("comment on %s: %w", id, err)
			}
			sum.Comments++
		}
	}
	return sum, nil
}

// hashTags types up to n random words into a tag editor, so repeats are
// dropped the way the post form drops them.
func hashTags(faker *gofakeit.Faker, n int) []string {
	editor := tags.NewEditor()
	for i := 0; i < n; i++ {
		editor.SetInput(faker.Word())
		_ = editor.KeyUp(tags.KeyEvent{Code: tags.KeySpace})
	}
	return editor.Tags()
}
