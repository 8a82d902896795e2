package analysis

import (
	"context"
	"errors"

	"github.com/oukeidos/xraylens/internal/apperrors"
)

// normalizeError maps any failure onto the caller contract: cancellation
// first, classified errors with their own message (retries_exhausted keeps
// its fixed wording), and everything else as unexpected.
func normalizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		if apperrors.Is(err, apperrors.KindCanceled) {
			return err
		}
		return apperrors.New(apperrors.KindCanceled, "", err)
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(apperrors.KindCanceled, "", err)
	}
	return apperrors.New(apperrors.KindUnexpected, "", err)
}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := apperrors.KindOf(err); ok {
		return string(kind)
	}
	return string(apperrors.KindUnexpected)
}
