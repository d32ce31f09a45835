package guard

type MenuItem struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

type MenuGroup struct {
	Title string     `json:"title"`
	Items []MenuItem `json:"items"`
}

// AccessibleMenus lists the routes the session may open, grouped in table
// order. Hidden and public routes are never listed and empty groups are
// dropped.
func AccessibleMenus(routes []Route, s Session) []MenuGroup {
	out := []MenuGroup{}
	if s == nil || !s.IsAuthenticated() {
		return out
	}
	index := make(map[string]int)
	for _, r := range routes {
		if r.Public || r.Meta.Hidden || !mayOpen(r, s) {
			continue
		}
		i, ok := index[r.Meta.Group]
		if !ok {
			i = len(out)
			index[r.Meta.Group] = i
			out = append(out, MenuGroup{Title: r.Meta.Group})
		}
		out[i].Items = append(out[i].Items, MenuItem{Path: r.Path, Name: r.Name, Title: r.Meta.Title, Icon: r.Meta.Icon})
	}
	return out
}

func mayOpen(r Route, s Session) bool {
	if len(r.Meta.Roles) > 0 && !s.HasAnyRole(r.Meta.Roles) {
		return false
	}
	if len(r.Meta.Permissions) > 0 && !s.HasAllPermissions(r.Meta.Permissions) {
		return false
	}
	return true
}
