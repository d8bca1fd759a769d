package post

import (
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"
	"backend-twitter/internal/tags"

	"github.com/gofiber/fiber/v2"
)

// TagKeyRequest replays one key release against a tag list.
type TagKeyRequest struct {
	Tags    []string `json:"tags"`
	Input   string   `json:"input"`
	KeyCode int      `json:"keyCode"`
	Remove  string   `json:"remove"`
}

type TagKeyResponse struct {
	Tags  []string `json:"tags"`
	Input string   `json:"input"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		posts, err := svc.List(c.UserContext(), ListInput{
			AuthorID: c.Query("uid"),
			HashTag:  c.Query("tag"),
			Limit:    c.QueryInt("limit", 0),
		})
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(posts)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var in CreateInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		sess, _ := session.From(c)
		res, err := svc.Create(c.UserContext(), i18n.From(c), sess, in)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	r.Post("/tags/keyup", func(c *fiber.Ctx) error {
		var req TagKeyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		tr := i18n.From(c)
		editor, err := tags.FromList(req.Tags)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, tr.T(i18n.TagDuplicate))
		}
		if req.Remove != "" {
			editor.Remove(req.Remove)
		}
		editor.SetInput(req.Input)
		if err := editor.KeyUp(tags.KeyEvent{Code: req.KeyCode}); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, tr.T(i18n.TagDuplicate))
		}
		return c.JSON(TagKeyResponse{Tags: editor.Tags(), Input: editor.Input()})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		p, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(Detail{Post: &p, Comments: p.CommentsNewestFirst()})
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var in EditInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		in.ID = c.Params("id")
		sess, _ := session.From(c)
		res, err := svc.Edit(c.UserContext(), i18n.From(c), sess, in)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(res)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		sess, _ := session.From(c)
		res, err := svc.Delete(c.UserContext(), i18n.From(c), sess, c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(res)
	})

	r.Post("/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		var in CommentInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		in.PostID = c.Params("id")
		sess, _ := session.From(c)
		res, err := svc.AddComment(c.UserContext(), i18n.From(c), sess, in)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	r.Delete("/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		var comment Comment
		if err := c.BodyParser(&comment); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		sess, _ := session.From(c)
		res, err := svc.DeleteComment(c.UserContext(), i18n.From(c), sess, c.Params("id"), comment)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(res)
	})
}
