package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/infra/logging"
	"iptv-client-portal/internal/usecase"
)

// paymentID tolerates the processor sending the id as a number or a string.
type paymentID string

func (p *paymentID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*p = paymentID(s)
	return nil
}

// webhookNotification is the processor's notification envelope. Only the
// event type and payment id are read; everything else is untrusted.
type webhookNotification struct {
	Type string `json:"type"`
	Data struct {
		ID paymentID `json:"id"`
	} `json:"data"`
}

// handleWebhook answers Mercado Pago notifications. A 2xx acknowledges and
// stops redelivery, so anything that must be retried (an upstream fetch
// failure, an internal error) answers 5xx instead. Unmatched references are
// acknowledged: redelivery cannot fix a reference we will never know.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var n webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "malformed notification")
		return
	}

	res, err := s.webhookUC.ProcessNotification(r.Context(), n.Type, string(n.Data.ID))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUpstreamFetch):
			writeError(w, http.StatusBadGateway, "payment fetch failed")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "missing payment id")
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Msg("webhook processing failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	switch res.Outcome {
	case usecase.OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Evento não processado",
		})
	case usecase.OutcomeUnmatched:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Transação não encontrada",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":        true,
			"transaction_id": res.TransactionID,
			"status":         res.Status,
		})
	}
}
