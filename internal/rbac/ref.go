package rbac

import "strings"

// Ref is a parsed permission reference. It is one of LegacyPermission,
// GranularPermission, ModuleAccess or an invalid reference that never matches.
type Ref interface {
	String() string
	lookup() (lookupKey, bool)
}

// lookupKey addresses one entry inside one module bucket of a snapshot.
// An empty entry means "any entry in the bucket".
type lookupKey struct {
	module Module
	entry  string
}

// LegacyPermission is the two-part "module:action" form. The action is
// matched verbatim against the module bucket, dotted entries included.
type LegacyPermission struct {
	Module Module
	Action Action
}

func (p LegacyPermission) String() string { return permissionKey(p.Module, p.Action) }

func (p LegacyPermission) lookup() (lookupKey, bool) {
	if p.Module == "" || p.Action == "" {
		return lookupKey{}, false
	}
	return lookupKey{module: p.Module, entry: string(p.Action)}, true
}

// GranularPermission is a dotted path such as "finanzas.cajas_chicas.aprobar".
// It lives in the bucket of its first segment and matches the full path.
type GranularPermission struct {
	Path string
}

func (p GranularPermission) String() string { return p.Path }

func (p GranularPermission) lookup() (lookupKey, bool) {
	module, rest, ok := strings.Cut(p.Path, ".")
	if !ok || module == "" || rest == "" {
		return lookupKey{}, false
	}
	return lookupKey{module: Module(module), entry: p.Path}, true
}

// ModuleAccess is a bare module name: "has any access to this module".
type ModuleAccess struct {
	Module Module
}

func (p ModuleAccess) String() string { return string(p.Module) }

func (p ModuleAccess) lookup() (lookupKey, bool) {
	if p.Module == "" {
		return lookupKey{}, false
	}
	return lookupKey{module: p.Module}, true
}

type invalidRef string

func (p invalidRef) String() string             { return string(p) }
func (p invalidRef) lookup() (lookupKey, bool) { return lookupKey{}, false }

// ParseRef normalizes a permission string. "module:action" yields a
// LegacyPermission, a dotted path a GranularPermission and anything else a
// ModuleAccess. Malformed input yields a reference that never matches.
func ParseRef(raw string) Ref {
	s := strings.TrimSpace(raw)
	if s == "" {
		return invalidRef(raw)
	}
	if module, action, ok := strings.Cut(s, ":"); ok {
		ref := LegacyPermission{Module: Module(module), Action: Action(action)}
		if _, valid := ref.lookup(); !valid || strings.Contains(action, ".") {
			return invalidRef(raw)
		}
		return ref
	}
	if strings.Contains(s, ".") {
		ref := GranularPermission{Path: s}
		if _, valid := ref.lookup(); !valid {
			return invalidRef(raw)
		}
		return ref
	}
	return ModuleAccess{Module: Module(s)}
}
