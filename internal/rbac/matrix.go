package rbac

// Matrix maps each module to the actions every role may perform on it.
type Matrix map[Module]map[Role][]Action

// GranularMatrix maps each role to the granular dotted permissions it holds.
type GranularMatrix map[Role][]string

var (
	allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove, ActionReject, ActionExport, ActionImport, ActionManage}
	adminSet   = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove, ActionReject, ActionExport, ActionImport}
	directSet  = []Action{ActionCreate, ActionRead, ActionUpdate, ActionApprove, ActionReject, ActionExport}
	coordSet   = []Action{ActionCreate, ActionRead, ActionUpdate, ActionExport}
	staffSet   = []Action{ActionCreate, ActionRead, ActionUpdate}
	readOnly   = []Action{ActionRead}
	readExport = []Action{ActionRead, ActionExport}
)

// DefaultMatrix returns the static role-permission matrix seeded into storage.
func DefaultMatrix() Matrix {
	return Matrix{
		ModuleUsers: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExport, ActionManage},
			RoleDirector:    readOnly,
			RoleCoordinador: readOnly,
		},
		ModuleRoles: {
			RoleSuperAdmin: allActions,
			RoleAdmin:      {ActionRead, ActionUpdate, ActionManage},
			RoleDirector:   readOnly,
		},
		ModulePermissions: {
			RoleSuperAdmin: allActions,
			RoleAdmin:      {ActionRead, ActionManage},
		},
		ModuleProjects: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    staffSet,
			RoleCiudadano:   readOnly,
		},
		ModuleBudgets: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: readExport,
			RoleEmpleado:    readOnly,
		},
		ModuleProperties: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    staffSet,
			RoleCiudadano:   readOnly,
		},
		ModuleUrbanVariables: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    readOnly,
		},
		ModulePayroll: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    {ActionRead, ActionApprove, ActionReject, ActionExport},
			RoleCoordinador: readOnly,
		},
		ModuleTaxes: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    staffSet,
			RoleCiudadano:   {ActionCreate, ActionRead},
		},
		ModuleLicenses: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    staffSet,
			RoleCiudadano:   {ActionCreate, ActionRead},
		},
		ModuleFleet: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    readOnly,
		},
		ModuleDocuments: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    staffSet,
		},
		ModuleCorrespondence: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    staffSet,
		},
		ModuleParticipation: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: coordSet,
			RoleEmpleado:    readOnly,
			RoleCiudadano:   {ActionCreate, ActionRead},
		},
		ModuleFinanzas: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       adminSet,
			RoleDirector:    directSet,
			RoleCoordinador: readExport,
		},
		ModuleReports: {
			RoleSuperAdmin:  allActions,
			RoleAdmin:       readExport,
			RoleDirector:    readExport,
			RoleCoordinador: readExport,
			RoleEmpleado:    readOnly,
		},
		ModuleSettings: {
			RoleSuperAdmin: allActions,
			RoleAdmin:      {ActionRead, ActionUpdate},
		},
	}
}

// DefaultGranularMatrix returns the static granular grants per role.
func DefaultGranularMatrix() GranularMatrix {
	return GranularMatrix{
		RoleSuperAdmin: GranularPaths,
		RoleAdmin:      GranularPaths,
		RoleDirector: {
			PermCajasChicasAprobar,
			PermPagosAutorizar,
			PermPrestamosAprobar,
			PermZonificacionValidar,
		},
		RoleCoordinador: {
			PermCajasChicasCrear,
			PermCajasChicasRendir,
			PermZonificacionValidar,
		},
		RoleEmpleado: {
			PermCajasChicasRendir,
			PermPrestamosRegistrar,
		},
	}
}

// Actions returns the actions granted to role on module; empty for unknown pairs.
func (m Matrix) Actions(module Module, role Role) []Action {
	return m[module][role]
}

// Expected returns the snapshot a role should receive from a full seed of m and g.
// Modules without grants are omitted.
func Expected(m Matrix, g GranularMatrix, role Role) Snapshot {
	out := Snapshot{}
	for _, module := range Modules {
		for _, a := range m.Actions(module, role) {
			out[module] = append(out[module], string(a))
		}
	}
	for _, path := range g[role] {
		seed, ok := GranularSeed(path)
		if !ok {
			continue
		}
		out[seed.Module] = append(out[seed.Module], path)
	}
	return out
}
