package manifest

import "errors"

var ErrInvalidManifest = errors.New("invalid manifest")
var ErrInvalidPartitionName = errors.New("invalid partition name")
