package remote

import "fmt"

// Step names a provisioning sub-step for failure reporting.
type Step string

const (
	// StepDownload is the package download on the target.
	StepDownload Step = "download"
	// StepExtract is the package extraction into the staging path.
	StepExtract Step = "extract"
	// StepCommit is the atomic rename of the staged install.
	StepCommit Step = "commit"
	// StepVerify is the post-install presence check.
	StepVerify Step = "verify"
	// StepUpload is the artifact tree transfer.
	StepUpload Step = "upload"
)

// StepError reports which provisioning sub-step failed. Verbs never
// retry; the caller may re-run the whole flow.
type StepError struct {
	Verb string
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Verb, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(verb string, step Step, err error) error {
	return &StepError{Verb: verb, Step: step, Err: err}
}
