package prior

import "errors"

// ErrConfiguration is returned when the dataset or build parameters cannot
// produce priors: missing required columns, no service indicators, or
// out-of-range parameters.
var ErrConfiguration = errors.New("prior: configuration error")
