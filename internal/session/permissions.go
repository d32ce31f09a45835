package session

import "slices"

// grants reports whether the role/permission pair satisfies p. The admin role
// satisfies every permission.
func grants(roles, perms []string, p string) bool {
	return slices.Contains(roles, RoleAdmin) || slices.Contains(perms, p)
}

func grantsAny(roles, perms, list []string) bool {
	for _, p := range list {
		if grants(roles, perms, p) {
			return true
		}
	}
	return false
}

func grantsAll(roles, perms, list []string) bool {
	for _, p := range list {
		if !grants(roles, perms, p) {
			return false
		}
	}
	return true
}

func hasAnyRole(roles, list []string) bool {
	for _, r := range list {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

func (m *Manager) HasPermission(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return grants(m.roles, m.perms, p)
}

func (m *Manager) HasAnyPermission(list []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return grantsAny(m.roles, m.perms, list)
}

func (m *Manager) HasAllPermissions(list []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return grantsAll(m.roles, m.perms, list)
}

func (m *Manager) HasRole(r string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.roles, r)
}

func (m *Manager) HasAnyRole(list []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return hasAnyRole(m.roles, list)
}

func (m *Manager) IsAdmin() bool   { return m.HasRole(RoleAdmin) }
func (m *Manager) IsTeacher() bool { return m.HasRole(RoleTeacher) }
func (m *Manager) IsStudent() bool { return m.HasRole(RoleStudent) }
