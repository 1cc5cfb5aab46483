package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boddenberg/billstats-bfa/internal/domain"
)

var errMalformed = errors.New("malformed bill event")

func encodeEvent(e domain.BillEvent) ([]byte, error) {
	return json.Marshal(e)
}

// decodeEvent parses a delivery body. Events the worker cannot route to a
// user and month are rejected as malformed.
func decodeEvent(body []byte) (domain.BillEvent, error) {
	var e domain.BillEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return domain.BillEvent{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	switch {
	case e.UserID == "":
		return domain.BillEvent{}, fmt.Errorf("%w: missing user_id", errMalformed)
	case e.Date.IsZero():
		return domain.BillEvent{}, fmt.Errorf("%w: missing date", errMalformed)
	}
	switch e.Type {
	case domain.BillCreated, domain.BillUpdated, domain.BillDeleted:
	default:
		return domain.BillEvent{}, fmt.Errorf("%w: unknown type %q", errMalformed, e.Type)
	}
	return e, nil
}
