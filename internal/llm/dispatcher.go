package llm

import (
	"context"
	"fmt"

	"sygl/internal/pricing"
)

// Dispatcher routes requests to the adapter registered for their model.
type Dispatcher struct {
	adapters map[pricing.Model]Adapter
}

// NewDispatcher registers adapters by the model they serve.
func NewDispatcher(adapters ...Adapter) (*Dispatcher, error) {
	d := &Dispatcher{adapters: make(map[pricing.Model]Adapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		model := adapter.Model()
		if !model.Valid() {
			return nil, fmt.Errorf("adapter serves unknown model %q", model)
		}
		if _, dup := d.adapters[model]; dup {
			return nil, fmt.Errorf("duplicate adapter for model %q", model)
		}
		d.adapters[model] = adapter
	}
	return d, nil
}

// Supports reports whether an adapter is registered for model.
func (d *Dispatcher) Supports(model pricing.Model) bool {
	_, ok := d.adapters[model]
	return ok
}

// Dispatch runs one generation. A failed result always reports zero credits;
// a successful one reports the model's cost and carries the resolved model in its metadata.
func (d *Dispatcher) Dispatch(ctx context.Context, req GenerationRequest) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			requestLogger(ctx, "dispatcher", "", req).
				WithField("panic", fmt.Sprint(r)).
				Error("llm_dispatch_panic")
			result = Failure("generation failed unexpectedly")
		}
		if !result.Success {
			result.CreditsUsed = 0
			result.ImageURL = ""
			result.ImageData = ""
			result.Metadata = nil
			if result.Error == "" {
				result.Error = "generation failed"
			}
		}
	}()

	cost := pricing.CostOf(req.Model)
	adapter, ok := d.adapters[req.Model]
	if !ok || cost <= 0 {
		return Failure("unsupported model: %s", req.Model)
	}

	result = adapter.Generate(ctx, req)
	if !result.Success {
		return result
	}
	if result.ImageURL == "" && result.ImageData == "" {
		return Failure("%s returned no image", req.Model)
	}

	result.CreditsUsed = cost
	if result.Metadata != nil {
		result.Metadata.Model = req.Model
	}
	return result
}
