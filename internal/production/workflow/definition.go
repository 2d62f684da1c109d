package workflow

import "errors"

// Errors for workflow definition loading
var (
	ErrUnsupportedProductType = errors.New("unsupported product type")
	ErrDefinitionNotFound     = errors.New("workflow definition file not found")
	ErrInvalidDefinition      = errors.New("workflow definition failed schema validation")
	ErrUnknownMetric          = errors.New("workflow condition references an unknown metric")
)

// ProductType identifies a production workflow family
type ProductType string

const (
	ProductTypeFreshMilk ProductType = "fresh_milk"
	ProductTypeYoghurt   ProductType = "yoghurt"
	ProductTypeMala      ProductType = "mala"
	ProductTypeCheese    ProductType = "cheese"
)

// IsValid checks if the product type is valid
func (p ProductType) IsValid() bool {
	switch p {
	case ProductTypeFreshMilk, ProductTypeYoghurt, ProductTypeMala, ProductTypeCheese:
		return true
	}
	return false
}

// SupportedProductTypes returns all product types with a registered definition
func SupportedProductTypes() []ProductType {
	return []ProductType{
		ProductTypeFreshMilk,
		ProductTypeYoghurt,
		ProductTypeMala,
		ProductTypeCheese,
	}
}

// ConditionType is the closed set of monitoring condition kinds
type ConditionType string

const (
	ConditionMinValue      ConditionType = "min_value"
	ConditionMaxValue      ConditionType = "max_value"
	ConditionRangeValue    ConditionType = "range_value"
	ConditionHoldTimeMin   ConditionType = "hold_time_min"
	ConditionCaptureMetric ConditionType = "capture_metric"
)

// IsValid checks if the condition type is valid
func (c ConditionType) IsValid() bool {
	switch c {
	case ConditionMinValue, ConditionMaxValue, ConditionRangeValue,
		ConditionHoldTimeMin, ConditionCaptureMetric:
		return true
	}
	return false
}

// RequirementType classifies what a monitoring requirement measures
type RequirementType string

const (
	RequirementTemperature RequirementType = "temperature"
	RequirementPH          RequirementType = "ph"
	RequirementTime        RequirementType = "time"
	RequirementPressure    RequirementType = "pressure"
	RequirementWeight      RequirementType = "weight"
	RequirementVisual      RequirementType = "visual"
	RequirementComposition RequirementType = "composition"
)

// metricRequirementTypes maps condition metrics to requirement types.
// Unknown metrics are a load-time error, not a silent skip.
var metricRequirementTypes = map[string]RequirementType{
	"temperature_celsius": RequirementTemperature,
	"ph":                  RequirementPH,
	"hold_time_minutes":   RequirementTime,
	"pressure_bar":        RequirementPressure,
	"weight_kg":           RequirementWeight,
	"visual_check":        RequirementVisual,
	"fat_percent":         RequirementComposition,
	"moisture_percent":    RequirementComposition,
	"titratable_acidity":  RequirementComposition,
	"culture_dose_units":  RequirementComposition,
}

// RequirementTypeForMetric resolves a condition metric to a requirement type
func RequirementTypeForMetric(metric string) (RequirementType, bool) {
	rt, ok := metricRequirementTypes[metric]
	return rt, ok
}

// MonitoringFrequency is how often a requirement must be sampled
type MonitoringFrequency string

const (
	Frequency30Minutes MonitoringFrequency = "30_minutes"
	FrequencyPerBatch  MonitoringFrequency = "per_batch"
)

// Definition is a versioned production workflow loaded from configs/workflows
type Definition struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Stages  []StageDefinition `json:"stages"`
}

// StageDefinition is one ordered production step
type StageDefinition struct {
	Key        string      `json:"key"`
	Label      string      `json:"label"`
	Gates      []Gate      `json:"gates,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Sampling   Sampling    `json:"sampling"`
	AutoDivert bool        `json:"auto_divert"`
}

// Gate is an approval gate on a stage; ESign marks a critical control point
type Gate struct {
	Name  string `json:"name"`
	ESign bool   `json:"esign"`
}

// Condition is a monitoring condition attached to a stage
type Condition struct {
	Type                   ConditionType `json:"type"`
	Metric                 string        `json:"metric"`
	Min                    *float64      `json:"min,omitempty"`
	Max                    *float64      `json:"max,omitempty"`
	TargetValue            *float64      `json:"target,omitempty"`
	HoldTimeMinutes        *float64      `json:"hold_time_minutes,omitempty"`
	ToleranceWindowSeconds int           `json:"tolerance_window_seconds,omitempty"`
	Unit                   string        `json:"unit,omitempty"`
}

// Sampling controls how often conditions are evaluated
type Sampling struct {
	Mode string `json:"mode"` // online, 30_minutes, per_batch, manual
}

// Frequency derives the monitoring frequency from the sampling mode.
// Online and 30-minute modes sample every 30 minutes, everything else per batch.
func (s Sampling) Frequency() MonitoringFrequency {
	switch s.Mode {
	case "online", "30_minutes":
		return Frequency30Minutes
	}
	return FrequencyPerBatch
}

// IsCriticalControlPoint reports whether any gate requires an e-signature
func (s StageDefinition) IsCriticalControlPoint() bool {
	for _, g := range s.Gates {
		if g.ESign {
			return true
		}
	}
	return false
}

// RequiresApproval reports whether the stage has any gates at all
func (s StageDefinition) RequiresApproval() bool {
	return len(s.Gates) > 0
}
