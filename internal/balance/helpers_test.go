package balance

import "go.uber.org/multierr"

func multierrLen(err error) int {
	return len(multierr.Errors(err))
}
