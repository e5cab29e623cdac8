package driver

import (
	"github.com/gen2brain/malgo"

	"github.com/rom9/multirec/internal/errors"
)

func errUnsupportedFormat(format malgo.FormatType) error {
	return errors.Newf("unsupported capture format: %v", format).
		Component("driver").
		Category(errors.CategoryDriver).
		Build()
}
