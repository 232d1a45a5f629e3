package rbac

import "strings"

const (
	ModuleUsers          Module = "users"
	ModuleRoles          Module = "roles"
	ModulePermissions    Module = "permissions"
	ModuleProjects       Module = "projects"
	ModuleBudgets        Module = "budgets"
	ModuleProperties     Module = "properties"
	ModuleUrbanVariables Module = "urban_variables"
	ModulePayroll        Module = "payroll"
	ModuleTaxes          Module = "taxes"
	ModuleLicenses       Module = "licenses"
	ModuleFleet          Module = "fleet"
	ModuleDocuments      Module = "documents"
	ModuleCorrespondence Module = "correspondence"
	ModuleParticipation  Module = "participation"
	ModuleFinanzas       Module = "finanzas"
	ModuleReports        Module = "reports"
	ModuleSettings       Module = "settings"
)

// Modules is the closed set of modules in catalog order.
var Modules = []Module{
	ModuleUsers,
	ModuleRoles,
	ModulePermissions,
	ModuleProjects,
	ModuleBudgets,
	ModuleProperties,
	ModuleUrbanVariables,
	ModulePayroll,
	ModuleTaxes,
	ModuleLicenses,
	ModuleFleet,
	ModuleDocuments,
	ModuleCorrespondence,
	ModuleParticipation,
	ModuleFinanzas,
	ModuleReports,
	ModuleSettings,
}

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionExport  Action = "export"
	ActionImport  Action = "import"
	ActionManage  Action = "manage"
)

// Actions is the closed set of actions in catalog order.
var Actions = []Action{
	ActionCreate,
	ActionRead,
	ActionUpdate,
	ActionDelete,
	ActionApprove,
	ActionReject,
	ActionExport,
	ActionImport,
	ActionManage,
}

var actionLabels = map[Action]string{
	ActionCreate:  "Crear",
	ActionRead:    "Ver",
	ActionUpdate:  "Actualizar",
	ActionDelete:  "Eliminar",
	ActionApprove: "Aprobar",
	ActionReject:  "Rechazar",
	ActionExport:  "Exportar",
	ActionImport:  "Importar",
	ActionManage:  "Gestionar",
}

var moduleLabels = map[Module]string{
	ModuleUsers:          "usuarios",
	ModuleRoles:          "roles",
	ModulePermissions:    "permisos",
	ModuleProjects:       "proyectos",
	ModuleBudgets:        "presupuestos",
	ModuleProperties:     "inmuebles catastrales",
	ModuleUrbanVariables: "variables urbanas",
	ModulePayroll:        "nómina",
	ModuleTaxes:          "impuestos y patentes",
	ModuleLicenses:       "licencias",
	ModuleFleet:          "flota vehicular",
	ModuleDocuments:      "documentos",
	ModuleCorrespondence: "correspondencia",
	ModuleParticipation:  "presupuesto participativo",
	ModuleFinanzas:       "finanzas",
	ModuleReports:        "reportes",
	ModuleSettings:       "configuración",
}

// ActionLabel returns the human label of an action, or the raw action when unknown.
func ActionLabel(a Action) string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// ModuleLabel returns the human label of a module, or the raw module when unknown.
func ModuleLabel(m Module) string {
	if label, ok := moduleLabels[m]; ok {
		return label
	}
	return string(m)
}

// Describe builds the "<ActionLabel> <ModuleLabel>" permission description.
func Describe(m Module, a Action) string {
	return ActionLabel(a) + " " + ModuleLabel(m)
}

// BuildCatalog enumerates one permission candidate per (module, action) pair,
// iterating modules first and actions second.
func BuildCatalog(modules []Module, actions []Action) []PermissionSeed {
	seeds := make([]PermissionSeed, 0, len(modules)*len(actions))
	for _, m := range modules {
		for _, a := range actions {
			seeds = append(seeds, PermissionSeed{
				Name:        permissionKey(m, a),
				Module:      m,
				Action:      a,
				Description: Describe(m, a),
				IsActive:    true,
			})
		}
	}
	return seeds
}

// Granular permission paths seeded alongside the module/action cross product.
const (
	PermCajasChicasCrear    = "finanzas.cajas_chicas.crear"
	PermCajasChicasAprobar  = "finanzas.cajas_chicas.aprobar"
	PermCajasChicasRendir   = "finanzas.cajas_chicas.rendir"
	PermPagosAutorizar      = "finanzas.pagos.autorizar"
	PermPrestamosAprobar    = "payroll.prestamos.aprobar"
	PermPrestamosRegistrar  = "payroll.prestamos.registrar"
	PermZonificacionValidar = "urban_variables.zonificacion.validar"
)

var granularDescriptions = map[string]string{
	PermCajasChicasCrear:    "Crear cajas chicas",
	PermCajasChicasAprobar:  "Aprobar cajas chicas",
	PermCajasChicasRendir:   "Rendir cajas chicas",
	PermPagosAutorizar:      "Autorizar pagos",
	PermPrestamosAprobar:    "Aprobar préstamos de nómina",
	PermPrestamosRegistrar:  "Registrar préstamos de nómina",
	PermZonificacionValidar: "Validar cumplimiento de zonificación",
}

// GranularPaths lists the granular permissions in seed order.
var GranularPaths = []string{
	PermCajasChicasCrear,
	PermCajasChicasAprobar,
	PermCajasChicasRendir,
	PermPagosAutorizar,
	PermPrestamosAprobar,
	PermPrestamosRegistrar,
	PermZonificacionValidar,
}

// GranularSeed converts a dotted path into a permission candidate. The first
// segment is the module bucket and the remainder is stored as the action.
func GranularSeed(path string) (PermissionSeed, bool) {
	module, rest, ok := strings.Cut(path, ".")
	if !ok || module == "" || rest == "" {
		return PermissionSeed{}, false
	}
	desc, found := granularDescriptions[path]
	if !found {
		desc = path
	}
	return PermissionSeed{
		Name:        path,
		Module:      Module(module),
		Action:      Action(rest),
		Description: desc,
		IsActive:    true,
	}, true
}

// GranularCatalog returns the candidates for GranularPaths.
func GranularCatalog() []PermissionSeed {
	seeds := make([]PermissionSeed, 0, len(GranularPaths))
	for _, path := range GranularPaths {
		if seed, ok := GranularSeed(path); ok {
			seeds = append(seeds, seed)
		}
	}
	return seeds
}

// DefaultCatalog is the full set of permissions seeded by default.
func DefaultCatalog() []PermissionSeed {
	return append(BuildCatalog(Modules, Actions), GranularCatalog()...)
}
