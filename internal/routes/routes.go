// Package routes names the client pages the API points users at after an
// operation completes.
package routes

import "strings"

const (
	Home          = "/"
	Profile       = "/profile"
	ProfileEdit   = "/profile/edit"
	Login         = "/users/login"
	Signup        = "/users/signup"
	PostDetail    = "/posts/:id"
	PostEdit      = "/posts/edit/:id"
	Notifications = "/notifications"
)

func PostDetailPath(id string) string {
	return strings.Replace(PostDetail, ":id", id, 1)
}

func PostEditPath(id string) string {
	return strings.Replace(PostEdit, ":id", id, 1)
}

type MenuItem struct {
	Label  string `json:"label"`
	Path   string `json:"path,omitempty"`
	Action string `json:"action,omitempty"`
}

// Menu lists the navigation entries for the current sign-in state.
func Menu(signedIn bool) []MenuItem {
	items := []MenuItem{
		{Label: "Home", Path: Home},
		{Label: "Profile", Path: Profile},
	}
	if signedIn {
		return append(items, MenuItem{Label: "Logout", Action: "logout"})
	}
	return append(items, MenuItem{Label: "Login", Path: Login})
}
