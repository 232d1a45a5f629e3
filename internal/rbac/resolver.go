package rbac

// Principal is the authenticated actor with its resolved capabilities.
type Principal struct {
	UserID       int64
	Role         Role
	Capabilities Capabilities
}

// Resolver answers capability questions for one principal. Every check is
// total: a nil principal, an unknown module or a malformed string yields false.
type Resolver struct {
	principal *Principal
}

// NewResolver builds a resolver; a nil principal denies everything.
func NewResolver(p *Principal) *Resolver {
	return &Resolver{principal: p}
}

// Principal returns the principal behind the resolver, or nil.
func (r *Resolver) Principal() *Principal {
	if r == nil {
		return nil
	}
	return r.principal
}

func (r *Resolver) present() bool {
	return r != nil && r.principal != nil
}

// IsSuperAdmin reports whether the principal holds the top privilege role.
func (r *Resolver) IsSuperAdmin() bool {
	return r.present() && r.principal.Role == RoleSuperAdmin
}

// IsAdmin reports whether the principal holds one of the two most privileged roles.
func (r *Resolver) IsAdmin() bool {
	return r.present() && (r.principal.Role == RoleAdmin || r.principal.Role == RoleSuperAdmin)
}

// Can reports whether the principal may perform action on module.
func (r *Resolver) Can(module Module, action Action) bool {
	return r.CanRef(LegacyPermission{Module: module, Action: action})
}

// CanPermission is the single-argument form: a dotted granular path, a bare
// module name, or a legacy "module:action" string.
func (r *Resolver) CanPermission(perm string) bool {
	return r.CanRef(ParseRef(perm))
}

// CanRef resolves a parsed reference.
func (r *Resolver) CanRef(ref Ref) bool {
	if !r.present() {
		return false
	}
	if r.principal.Role == RoleSuperAdmin {
		return true
	}
	if ref == nil {
		return false
	}
	key, ok := ref.lookup()
	if !ok {
		return false
	}
	return r.principal.Capabilities.match(key)
}

// CanAny reports whether at least one permission resolves true.
func (r *Resolver) CanAny(perms ...string) bool {
	for _, p := range perms {
		if r.CanPermission(p) {
			return true
		}
	}
	return false
}

// CanAll reports whether every permission resolves true. An empty list is
// vacuously allowed only for a present principal.
func (r *Resolver) CanAll(perms ...string) bool {
	if !r.present() {
		return false
	}
	for _, p := range perms {
		if !r.CanPermission(p) {
			return false
		}
	}
	return true
}

// CanAccessModule reports read or manage access to module.
func (r *Resolver) CanAccessModule(module Module) bool {
	return r.Can(module, ActionRead) || r.Can(module, ActionManage)
}

func (r *Resolver) CanCreate(module Module) bool  { return r.Can(module, ActionCreate) }
func (r *Resolver) CanRead(module Module) bool    { return r.Can(module, ActionRead) }
func (r *Resolver) CanUpdate(module Module) bool  { return r.Can(module, ActionUpdate) }
func (r *Resolver) CanDelete(module Module) bool  { return r.Can(module, ActionDelete) }
func (r *Resolver) CanExport(module Module) bool  { return r.Can(module, ActionExport) }
func (r *Resolver) CanApprove(module Module) bool { return r.Can(module, ActionApprove) }
func (r *Resolver) CanManage(module Module) bool  { return r.Can(module, ActionManage) }
