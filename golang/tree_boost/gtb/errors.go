package gtb

import (
	"fmt"

	"github.com/pkg/errors"
)

//ConfigError reports a hyper-parameter outside of its documented range.
//It is raised before any row is processed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "gtb: invalid configuration: " + e.Reason
}

//DataError reports training data that cannot be boosted: mismatched sizes,
//too few classes, negative labels or unparsable features.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "gtb: invalid data: " + e.Reason
}

//LearnerError wraps a failure of the tree fitting step. Iteration is 1-based,
//Class is the class index of the failed tree (0 in the two-class case).
type LearnerError struct {
	Iteration int
	Class     int
	Err       error
}

func (e *LearnerError) Error() string {
	return fmt.Sprintf("gtb: tree fit failed at iteration %d, class %d: %v", e.Iteration, e.Class, e.Err)
}

func (e *LearnerError) Cause() error  { return e.Err }
func (e *LearnerError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{Reason: fmt.Sprintf(format, args...)})
}

func dataErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&DataError{Reason: fmt.Sprintf(format, args...)})
}

//IsConfigError reports whether err was caused by a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

//IsDataError reports whether err was caused by a DataError.
func IsDataError(err error) bool {
	var target *DataError
	return errors.As(err, &target)
}

//IsLearnerError reports whether err was caused by a LearnerError.
func IsLearnerError(err error) bool {
	var target *LearnerError
	return errors.As(err, &target)
}
