// Package progress derives completion and phase information for partidas,
// the construction work items tracked through the 13-step workflow.
package progress

// Phase is the coarse stage a partida has reached in the workflow.
type Phase string

const (
	PhasePlanificacion Phase = "Planificación"
	PhaseMateriales    Phase = "Materiales"
	PhaseEjecucion     Phase = "Ejecución"
	PhasePago          Phase = "Pago"
	PhaseCompletado    Phase = "Completado"
)

// TotalSteps is the fixed number of workflow milestones.
const TotalSteps = 13

// Partida is the read model of a construction work item. The flags are
// mutated elsewhere; this package only reads them.
type Partida struct {
	ID       string
	TenantID string
	Sequence int

	// Planning.
	KitMaterialInicial  bool
	KitMaterialAjustado bool
	FaenaContratada     bool
	SubcontratoAsignado bool

	// Materials.
	KitInicialCotizado   bool
	SolpedInicialEmitida bool
	KitComprado          bool
	KitDisponibleBodega  bool
	KitEntregadoTerreno  bool

	// Execution.
	FaenaEjecutada   bool
	EntregadoCalidad bool
	TratoPagado      bool

	// Payment.
	PagoCursado bool
}

// Step pairs a workflow milestone with its phase and completion state.
type Step struct {
	Name  string
	Phase Phase
	Done  bool
}

// Steps returns the milestones in workflow order. The fixed-size array keeps
// step counting and the phase cascade exhaustive if a milestone is ever added.
func (p Partida) Steps() [TotalSteps]Step {
	return [TotalSteps]Step{
		{Name: "kitMaterialInicial", Phase: PhasePlanificacion, Done: p.KitMaterialInicial},
		{Name: "kitMaterialAjustado", Phase: PhasePlanificacion, Done: p.KitMaterialAjustado},
		{Name: "faenaContratada", Phase: PhasePlanificacion, Done: p.FaenaContratada},
		{Name: "subcontratoAsignado", Phase: PhasePlanificacion, Done: p.SubcontratoAsignado},
		{Name: "kitInicialCotizado", Phase: PhaseMateriales, Done: p.KitInicialCotizado},
		{Name: "solpedInicialEmitida", Phase: PhaseMateriales, Done: p.SolpedInicialEmitida},
		{Name: "kitComprado", Phase: PhaseMateriales, Done: p.KitComprado},
		{Name: "kitDisponibleBodega", Phase: PhaseMateriales, Done: p.KitDisponibleBodega},
		{Name: "kitEntregadoTerreno", Phase: PhaseMateriales, Done: p.KitEntregadoTerreno},
		{Name: "faenaEjecutada", Phase: PhaseEjecucion, Done: p.FaenaEjecutada},
		{Name: "entregadoCalidad", Phase: PhaseEjecucion, Done: p.EntregadoCalidad},
		{Name: "tratoPagado", Phase: PhaseEjecucion, Done: p.TratoPagado},
		{Name: "pagoCursado", Phase: PhasePago, Done: p.PagoCursado},
	}
}

// StepNames lists the milestone field names in workflow order.
func StepNames() [TotalSteps]string {
	var names [TotalSteps]string
	for i, step := range (Partida{}).Steps() {
		names[i] = step.Name
	}
	return names
}
