package reconciliation

import (
	"net/http"
	"strings"

	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

const (
	RefKindBooking   = "BOOKING"
	RefKindGuestlist = "GUESTLIST"
)

const (
	bookingPrefix   = "BK-"
	guestlistPrefix = "GL-"
)

// PaymentRef is a gateway order reference resolved to the kind of record it
// settles against. Value keeps the full reference as the gateway knows it.
type PaymentRef struct {
	Kind  string
	Value string
}

func ParsePaymentRef(ref string) (PaymentRef, error) {
	switch {
	case strings.HasPrefix(ref, bookingPrefix):
		return PaymentRef{Kind: RefKindBooking, Value: ref}, nil
	case strings.HasPrefix(ref, guestlistPrefix):
		return PaymentRef{Kind: RefKindGuestlist, Value: ref}, nil
	default:
		return PaymentRef{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "unrecognized payment reference")
	}
}
