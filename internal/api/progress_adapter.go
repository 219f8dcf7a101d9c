package api

import (
	"spendlens/internal/pipeline"
)

// ProgressBroadcaster adapts runner progress callbacks to the SSE hub
type ProgressBroadcaster struct {
	hub *SSEHub
}

// NewProgressBroadcaster wires the hub behind a runner's OnProgress hook
func NewProgressBroadcaster(hub *SSEHub) *ProgressBroadcaster {
	return &ProgressBroadcaster{hub: hub}
}

// OnProgress converts one step transition into a stream event. The
// runner's final callback carries the synthetic "complete" step.
func (pb *ProgressBroadcaster) OnProgress(p pipeline.Progress) {
	event := PipelineEvent{
		RunID:      p.RunID.String(),
		EventType:  EventStep,
		Step:       p.Step,
		StepIndex:  p.Index,
		TotalSteps: p.Total,
		Message:    p.Message,
	}
	if p.Step == "complete" {
		event.EventType = EventRunFinished
	}
	if p.Total > 0 {
		event.Progress = float64(p.Index) / float64(p.Total)
	}
	pb.hub.Broadcast(event)
}
