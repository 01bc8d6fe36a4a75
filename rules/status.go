package rules

import "time"

// Status summarizes where a qualification request stands.
type Status string

const (
	StatusAwaitingTest     Status = "AWAITING_TEST"
	StatusVisualRejected   Status = "REJECTED_VISUAL"
	StatusBendApproved     Status = "APPROVED_BEND"
	StatusBendRejected     Status = "REJECTED_BEND"
	StatusUltrasonicPassed Status = "APPROVED_UT"
	StatusUltrasonicFailed Status = "REJECTED_UT"
)

var statusLabels = map[Status]string{
	StatusAwaitingTest:     "Aguardando Teste",
	StatusVisualRejected:   "Reprovado Teste Visual",
	StatusBendApproved:     "Aprovado - DM",
	StatusBendRejected:     "Reprovado - DM",
	StatusUltrasonicPassed: "Aprovado - UT",
	StatusUltrasonicFailed: "Reprovado - UT",
}

func (s Status) Label() string { return statusLabels[s] }

// Open reports whether the request still waits for a result.
func (s Status) Open() bool { return s == StatusAwaitingTest }

func (s Status) Approved() bool {
	return s == StatusBendApproved || s == StatusUltrasonicPassed
}

// Outcome is the recorded state of a bend or ultrasonic test.
type Outcome struct {
	Recorded  bool
	Performed bool
	Approved  bool
	TestedAt  time.Time
}

// StatusInput gathers the test records of a request. Visual is nil when no
// visual inspection was recorded.
type StatusInput struct {
	TestType   string
	Visual     *string
	Bend       Outcome
	Ultrasonic Outcome
}

// RequestStatus derives the status shown to companies and inspectors.
// Requests recorded before visual inspections existed are judged on the
// mechanical tests alone.
func RequestStatus(in StatusInput) Status {
	if in.Visual == nil {
		switch {
		case in.Bend.Recorded && in.Bend.Approved:
			return StatusBendApproved
		case in.Ultrasonic.Recorded && in.Ultrasonic.Approved:
			return StatusUltrasonicPassed
		}
		return StatusAwaitingTest
	}

	switch *in.Visual {
	case ResultRejected:
		return StatusVisualRejected
	case ResultApproved:
	default:
		return StatusAwaitingTest
	}

	switch in.TestType {
	case TestTypeBend:
		return outcomeStatus(in.Bend, StatusBendApproved, StatusBendRejected)
	case TestTypeUltrasonic:
		return outcomeStatus(in.Ultrasonic, StatusUltrasonicPassed, StatusUltrasonicFailed)
	}
	return StatusAwaitingTest
}

func outcomeStatus(o Outcome, approved, rejected Status) Status {
	switch {
	case !o.Recorded || !o.Performed:
		return StatusAwaitingTest
	case o.Approved:
		return approved
	default:
		return rejected
	}
}

// CertificateEligible requires an approved visual inspection and an approved
// governing test. Legacy approvals without a visual record do not qualify.
func CertificateEligible(in StatusInput) bool {
	return in.Visual != nil && *in.Visual == ResultApproved && RequestStatus(in).Approved()
}

// ApprovalDate returns when the qualifying test was approved, preferring the
// bend test.
func ApprovalDate(in StatusInput) (time.Time, bool) {
	switch {
	case in.Bend.Recorded && in.Bend.Approved:
		return in.Bend.TestedAt, true
	case in.Ultrasonic.Recorded && in.Ultrasonic.Approved:
		return in.Ultrasonic.TestedAt, true
	}
	return time.Time{}, false
}
