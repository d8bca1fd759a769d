package post

import "backend-twitter/internal/docstore"

const Collection = "posts"

type Comment struct {
	Comment   string `json:"comment"`
	UID       string `json:"uid"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt string    `json:"createdAt"`
	HashTags  []string  `json:"hashTags"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
}

// CommentsNewestFirst returns the comments in reverse insertion order.
func (p Post) CommentsNewestFirst() []Comment {
	out := make([]Comment, len(p.Comments))
	for i, c := range p.Comments {
		out[len(p.Comments)-1-i] = c
	}
	return out
}

type CreateInput struct {
	Content      string   `json:"content"`
	HashTags     []string `json:"hashTags"`
	ImageDataURL string   `json:"imageDataUrl"`
}

// EditInput leaves the image untouched unless NewImageDataURL is set or
// RemoveImage is true.
type EditInput struct {
	ID              string   `json:"-"`
	Content         string   `json:"content"`
	HashTags        []string `json:"hashTags"`
	NewImageDataURL string   `json:"newImageDataUrl"`
	RemoveImage     bool     `json:"removeImage"`
}

type ListInput struct {
	AuthorID string
	HashTag  string
	Limit    int
}

type CommentInput struct {
	PostID  string `json:"-"`
	Comment string `json:"comment"`
}

// Result is what a form submission returns: the stored post, the toast
// text and the page to navigate to.
type Result struct {
	Post     Post   `json:"post"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// Detail is the live post detail page state.
type Detail struct {
	Post     *Post     `json:"post"`
	Comments []Comment `json:"comments"`
}

func fromDoc(doc docstore.Document) (Post, error) {
	var p Post
	if err := doc.DataTo(&p); err != nil {
		return Post{}, err
	}
	p.ID = doc.ID
	if p.HashTags == nil {
		p.HashTags = []string{}
	}
	return p, nil
}

func (p Post) fields() map[string]any {
	fields := map[string]any{
		"content":   p.Content,
		"uid":       p.UID,
		"email":     p.Email,
		"createdAt": p.CreatedAt,
		"hashTags":  p.HashTags,
	}
	if p.ImageURL != "" {
		fields["imageUrl"] = p.ImageURL
	}
	return fields
}

// DecodeDetail turns a post document snapshot into detail page state. A
// deleted post yields a nil Post.
func DecodeDetail(snap docstore.Snapshot) (Detail, error) {
	doc, ok := snap.Doc()
	if !ok {
		return Detail{Comments: []Comment{}}, nil
	}
	p, err := fromDoc(doc)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Post: &p, Comments: p.CommentsNewestFirst()}, nil
}
