package artifacts

import (
	"errors"

	"github.com/qrshare/qrshare/internal/common"
)

func isSentinel(err error) bool {
	return errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrConflict)
}
