package ast

import "strings"

// Modifiers: битовое множество модификаторов объявления.
type Modifiers uint16

const (
	ModPublic Modifiers = 1 << iota
	ModPrivate
	ModProtected
	ModStatic
	ModAbstract
	ModAsync
	ModPayable
	ModView
	ModPure
	ModReadonly
)

var modNames = []struct {
	m    Modifiers
	name string
}{
	{ModPublic, "public"},
	{ModPrivate, "private"},
	{ModProtected, "protected"},
	{ModStatic, "static"},
	{ModAbstract, "abstract"},
	{ModReadonly, "readonly"},
	{ModPayable, "payable"},
	{ModView, "view"},
	{ModPure, "pure"},
	{ModAsync, "async"},
}

func (m Modifiers) Has(x Modifiers) bool { return m&x != 0 }

// ReadOnly reports whether a method must not write contract storage.
func (m Modifiers) ReadOnly() bool { return m.Has(ModView) || m.Has(ModPure) }

// String renders modifiers in canonical order, space separated.
func (m Modifiers) String() string {
	var parts []string
	for _, n := range modNames {
		if m.Has(n.m) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}

// ModifierByName maps a keyword to its flag.
func ModifierByName(name string) (Modifiers, bool) {
	for _, n := range modNames {
		if n.name == name {
			return n.m, true
		}
	}
	return 0, false
}
