package kafka

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/detection"
)

// GroupDetector runs a detection pass over one group.
type GroupDetector interface {
	DetectGroup(ctx context.Context, groupID int64, force bool) (*detection.BatchReport, error)
}

// DetectionRequestHandler turns detection requests into detection passes.
// Client errors such as an unknown group are final and the message is
// committed. A conflict means another pass holds the group, so it is retried
// like a server error.
func DetectionRequestHandler(detector GroupDetector, logger ectologger.Logger) MessageHandler {
	return func(ctx context.Context, msg *IncomingMessage) error {
		req, err := msg.ParseDetectionRequest()
		if err != nil {
			return err
		}

		log := logger.WithContext(ctx).WithFields(map[string]any{
			"group_id":      req.GroupID,
			"force_recheck": req.ForceRecheck,
		})

		report, err := detector.DetectGroup(ctx, req.GroupID, req.ForceRecheck)
		if err != nil {
			if httperror.IsHTTPError(err) {
				status := httperror.GetStatusCode(err)
				if status >= http.StatusBadRequest && status < http.StatusInternalServerError && status != http.StatusConflict {
					log.WithError(err).Warn("Detection request rejected")
					return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
				}
			}
			return err
		}

		log.WithField("run_id", report.Summary.RunID).Info("Detection request processed")
		return nil
	}
}
