package policy

import "github.com/neogan74/catalog/internal/account"

// DefaultRules is the built-in access table used when no policy file is
// configured.
func DefaultRules() map[string][]Rule {
	return map[string][]Rule{
		account.RoleAdmin: {
			{Method: "GET", Path: "/api/user"},
			{Method: "GET", Path: "/api/resource"},
			{Method: "POST", Path: "/api/resource/add"},
			{Method: "PUT", Path: "/api/resource/update"},
			{Method: "DELETE", Path: "/api/resource/delete"},
			{Method: "GET", Path: "/api/activity/logs"},
		},
		account.RoleContentManager: {
			{Method: "GET", Path: "/api/user/me"},
			{Method: "GET", Path: "/api/resource"},
			{Method: "POST", Path: "/api/resource/add"},
			{Method: "PUT", Path: "/api/resource/update"},
			{Method: "DELETE", Path: "/api/resource/delete"},
		},
		account.RoleViewer: {
			{Method: "GET", Path: "/api/user/me"},
			{Method: "GET", Path: "/api/resource"},
		},
	}
}
