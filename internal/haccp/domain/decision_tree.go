package domain

import "fmt"

// Classification is the outcome of the CCP decision tree
type Classification string

const (
	ClassificationCCP    Classification = "ccp"
	ClassificationOPRP   Classification = "oprp"
	ClassificationAccept Classification = "accept"
)

// DecisionAnswers holds the stored yes/no answers to the four-question CCP
// decision tree. Later questions may stay unanswered when an earlier answer
// already decides the outcome.
type DecisionAnswers struct {
	// Q1: do control measures exist for the hazard at this step?
	ControlMeasuresExist *bool `bson:"controlMeasuresExist" json:"controlMeasuresExist"`
	// Q2: is this step specifically designed to eliminate the hazard or
	// reduce it to an acceptable level?
	StepEliminatesHazard *bool `bson:"stepEliminatesHazard" json:"stepEliminatesHazard"`
	// Q3: could contamination occur at or increase to unacceptable levels?
	ContaminationPossible *bool `bson:"contaminationPossible" json:"contaminationPossible"`
	// Q4: will a subsequent step eliminate the hazard or reduce it to an
	// acceptable level?
	SubsequentStepControls *bool `bson:"subsequentStepControls" json:"subsequentStepControls"`
}

// Classify walks the decision tree over the stored answers:
//
//	Q1 no             -> oprp   (no control at this step, manage through PRPs)
//	Q2 yes            -> ccp    (step designed to control the hazard)
//	Q3 no             -> accept (no realistic contamination path)
//	Q4 yes            -> oprp   (a later step controls the hazard)
//	Q4 no             -> ccp    (last chance to control the hazard)
//
// Answers are read in order; a question left unanswered where the walk still
// needs it yields ErrIncompleteAnswers.
func (a DecisionAnswers) Classify() (Classification, string, error) {
	if a.ControlMeasuresExist == nil {
		return "", "", fmt.Errorf("%w: control measures question unanswered", ErrIncompleteAnswers)
	}
	if !*a.ControlMeasuresExist {
		return ClassificationOPRP,
			"no control measure available at this step; hazard managed through operational prerequisite programmes",
			nil
	}

	if a.StepEliminatesHazard == nil {
		return "", "", fmt.Errorf("%w: step elimination question unanswered", ErrIncompleteAnswers)
	}
	if *a.StepEliminatesHazard {
		return ClassificationCCP,
			"step is specifically designed to eliminate the hazard or reduce it to an acceptable level",
			nil
	}

	if a.ContaminationPossible == nil {
		return "", "", fmt.Errorf("%w: contamination question unanswered", ErrIncompleteAnswers)
	}
	if !*a.ContaminationPossible {
		return ClassificationAccept,
			"contamination is not expected to occur or increase to unacceptable levels at this step",
			nil
	}

	if a.SubsequentStepControls == nil {
		return "", "", fmt.Errorf("%w: subsequent step question unanswered", ErrIncompleteAnswers)
	}
	if *a.SubsequentStepControls {
		return ClassificationOPRP,
			"a subsequent step will eliminate the hazard or reduce it to an acceptable level",
			nil
	}

	return ClassificationCCP,
		"no subsequent step controls the hazard; this step is the last point of control",
		nil
}
