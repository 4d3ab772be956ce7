package models

import (
	"fmt"
	"sort"
)

// Permission — право администратора. Набор значений закрыт.
type Permission string

const (
	PermissionManageWorkouts      Permission = "manage_workouts"
	PermissionManageExercises     Permission = "manage_exercises"
	PermissionManageCategories    Permission = "manage_categories"
	PermissionManageProducts      Permission = "manage_products"
	PermissionManageOrders        Permission = "manage_orders"
	PermissionManageUsers         Permission = "manage_users"
	PermissionManageSubscriptions Permission = "manage_subscriptions"
)

var allPermissions = []Permission{
	PermissionManageWorkouts,
	PermissionManageExercises,
	PermissionManageCategories,
	PermissionManageProducts,
	PermissionManageOrders,
	PermissionManageUsers,
	PermissionManageSubscriptions,
}

// AllPermissions возвращает копию полного списка прав.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// Valid сообщает, входит ли значение в перечисление.
func (p Permission) Valid() bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePermission превращает строку в Permission, отвергая неизвестные значения.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// PermissionSet — множество явно выданных прав.
// nil означает «ещё не загружено» и не даёт ни одного права.
type PermissionSet map[Permission]struct{}

// NewPermissionSet строит множество из списка.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has проверяет членство. Для nil множества всегда false.
func (s PermissionSet) Has(p Permission) bool {
	if s == nil {
		return false
	}
	_, ok := s[p]
	return ok
}

// List возвращает права в стабильном порядке.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
