package domain

// ComputeAttainment evaluates an actual value against a target and returns the
// attainment percentage plus its status classification.
//
// Lower-is-better targets cap attainment at 100 and treat non-positive actuals
// as full attainment. Higher-is-better targets are deliberately uncapped and
// return 0 when the target value is 0.
func ComputeAttainment(target *ObjectiveTarget, actualValue float64) (float64, AttainmentStatus) {
	if target.IsLowerBetter {
		return computeLowerBetter(target, actualValue)
	}
	return computeHigherBetter(target, actualValue)
}

func computeLowerBetter(target *ObjectiveTarget, actualValue float64) (float64, AttainmentStatus) {
	attainment := 100.0
	if actualValue > 0 {
		attainment = target.TargetValue / actualValue * 100
		if attainment > 100 {
			attainment = 100
		}
	}

	status := AttainmentOnTrack
	switch {
	case target.UpperThreshold != nil && actualValue > *target.UpperThreshold:
		status = AttainmentOffTrack
	case actualValue > target.TargetValue:
		status = AttainmentAtRisk
	}
	return attainment, status
}

func computeHigherBetter(target *ObjectiveTarget, actualValue float64) (float64, AttainmentStatus) {
	attainment := 0.0
	if target.TargetValue != 0 {
		attainment = actualValue / target.TargetValue * 100
	}

	status := AttainmentOnTrack
	switch {
	case thresholdPercent(target) != nil && attainment < *thresholdPercent(target):
		status = AttainmentOffTrack
	case attainment < 90:
		status = AttainmentAtRisk
	}
	return attainment, status
}

// thresholdPercent derives the off-track boundary from the lower threshold
func thresholdPercent(target *ObjectiveTarget) *float64 {
	if target.LowerThreshold == nil || target.TargetValue == 0 {
		return nil
	}
	pct := *target.LowerThreshold / target.TargetValue * 100
	return &pct
}
