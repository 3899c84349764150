package progress

import (
	"errors"
	"fmt"
	"math"
)

// ErrPartidaRequired is returned when a progress computation receives no partida.
var ErrPartidaRequired = errors.New("partida is required")

// Progress is the derived completion state of a single partida.
type Progress struct {
	PartidaID      string
	CompletedSteps int
	TotalSteps     int
	Percentage     int
	Phase          Phase
}

// Summary aggregates progress over a batch of partidas.
type Summary struct {
	TotalPartidas   int
	AverageProgress int
	Completed       int
	InProgress      int
}

// Compute derives completion and phase for one partida.
func Compute(p *Partida) (Progress, error) {
	if p == nil {
		return Progress{}, ErrPartidaRequired
	}

	completed := 0
	for _, step := range p.Steps() {
		if step.Done {
			completed++
		}
	}

	return Progress{
		PartidaID:      p.ID,
		CompletedSteps: completed,
		TotalSteps:     TotalSteps,
		Percentage:     int(math.Round(float64(completed) / TotalSteps * 100)),
		Phase:          phaseOf(p),
	}, nil
}

// phaseOf walks the cascade from the latest phase backward. Field updates
// arrive out of order, so a later-phase flag wins even while earlier flags
// are still false.
func phaseOf(p *Partida) Phase {
	switch {
	case p.PagoCursado:
		return PhaseCompletado
	case p.TratoPagado || p.EntregadoCalidad || p.FaenaEjecutada:
		return PhasePago
	case p.KitEntregadoTerreno || p.KitDisponibleBodega || p.KitComprado:
		return PhaseEjecucion
	case p.SolpedInicialEmitida || p.KitInicialCotizado:
		return PhaseMateriales
	default:
		return PhasePlanificacion
	}
}

// degraded is the substitute result for an item that could not be computed.
func degraded() Progress {
	return Progress{TotalSteps: TotalSteps, Phase: PhasePlanificacion}
}

// Average summarises a batch. A failing item degrades to a zero result and
// the batch continues; the summary averages percentages, not step counts.
func Average(items []*Partida) Summary {
	if len(items) == 0 {
		return Summary{}
	}

	summary := Summary{TotalPartidas: len(items)}
	sum := 0
	for _, item := range items {
		result, err := Compute(item)
		if err != nil {
			result = degraded()
		}
		sum += result.Percentage
		switch {
		case result.Percentage == 100:
			summary.Completed++
		case result.Percentage > 0:
			summary.InProgress++
		}
	}
	summary.AverageProgress = int(math.Round(float64(sum) / float64(len(items))))
	return summary
}

// Simple computes a clamped percentage from arbitrary completed/total counts.
func Simple(completed, total int) int {
	if total <= 0 || completed < 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// BulkResult reports the outcome of a bulk computation over untyped input.
type BulkResult struct {
	Summary    Summary
	Individual []Progress
	ValidCount int
	TotalCount int
	Errors     []string
}

// Bulk validates untyped items, drops structurally invalid entries, and
// aggregates the valid subset. It never fails regardless of input shape.
func Bulk(items []map[string]any) BulkResult {
	result := BulkResult{
		TotalCount: len(items),
		Individual: make([]Progress, 0, len(items)),
		Errors:     make([]string, 0),
	}

	valid := make([]*Partida, 0, len(items))
	for i, raw := range items {
		partida, err := decodePartida(raw)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		valid = append(valid, partida)

		if computed, computeErr := Compute(partida); computeErr == nil {
			result.Individual = append(result.Individual, computed)
		}
	}

	result.ValidCount = len(valid)
	result.Summary = Average(valid)
	return result
}

func decodePartida(raw map[string]any) (*Partida, error) {
	if raw == nil {
		return nil, errors.New("item is not an object")
	}

	flags := make(map[string]bool, TotalSteps)
	for _, name := range StepNames() {
		value, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("missing field %q", name)
		}
		flag, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q is not a boolean", name)
		}
		flags[name] = flag
	}

	partida := &Partida{
		KitMaterialInicial:   flags["kitMaterialInicial"],
		KitMaterialAjustado:  flags["kitMaterialAjustado"],
		FaenaContratada:      flags["faenaContratada"],
		SubcontratoAsignado:  flags["subcontratoAsignado"],
		KitInicialCotizado:   flags["kitInicialCotizado"],
		SolpedInicialEmitida: flags["solpedInicialEmitida"],
		KitComprado:          flags["kitComprado"],
		KitDisponibleBodega:  flags["kitDisponibleBodega"],
		KitEntregadoTerreno:  flags["kitEntregadoTerreno"],
		FaenaEjecutada:       flags["faenaEjecutada"],
		EntregadoCalidad:     flags["entregadoCalidad"],
		TratoPagado:          flags["tratoPagado"],
		PagoCursado:          flags["pagoCursado"],
	}
	if id, ok := raw["id"].(string); ok {
		partida.ID = id
	}
	return partida, nil
}
