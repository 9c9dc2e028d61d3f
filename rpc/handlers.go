package rpc

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"randomnft/crypto"
	"randomnft/oracle"
	"randomnft/rpc/middleware"
)

const defaultEventPage = 100

// CreateRequest admits a paid mint request for the authenticated caller.
func (s *Server) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	var body valueRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeBadRequest(w, "invalid payload")
		return
	}
	paid, ok := new(big.Int).SetString(strings.TrimSpace(body.Value), 10)
	if !ok || paid.Sign() < 0 {
		s.writeBadRequest(w, "value must be a non-negative decimal amount")
		return
	}
	id, err := s.ledger.RequestAsset(r.Context(), caller, paid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("mint requested", "requestId", id, "requester", crypto.FormatAddress(caller), "paid", paid.String())
	s.writeJSON(w, http.StatusAccepted, map[string]string{"requestId": formatUint(id)})
}

// Fulfill applies a coordinator-signed fulfillment.
func (s *Server) Fulfill(w http.ResponseWriter, r *http.Request) {
	if s.consumer == nil {
		http.Error(w, "fulfillment endpoint disabled", http.StatusNotFound)
		return
	}
	var f oracle.Fulfillment
	if err := decodeBody(r, &f); err != nil {
		s.writeBadRequest(w, "invalid fulfillment payload")
		return
	}
	if err := s.consumer.FulfillRandomness(r.Context(), f); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := s.ledger.Request(f.RequestID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, requestResultFrom(req))
}

// Withdraw drains the treasury to the authenticated owner.
func (s *Server) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	amount, err := s.ledger.Withdraw(caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("treasury withdrawn", "owner", crypto.FormatAddress(caller), "amount", amount.String())
	s.writeJSON(w, http.StatusOK, amountResult{Amount: amount.String()})
}

// Faucet credits the caller on local networks.
func (s *Server) Faucet(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	if err := s.ledger.Credit(caller, s.faucet); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amountResult{Amount: s.faucet.String()})
}

func (s *Server) GetMintFee(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, amountResult{Amount: s.ledger.MintFee().String()})
}

func (s *Server) GetCounters(w http.ResponseWriter, r *http.Request) {
	requests, err := s.ledger.RequestCounter()
	if err != nil {
		s.writeError(w, err)
		return
	}
	assets, err := s.ledger.AssetCounter()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountersResult{Requests: requests, Assets: assets})
}

func (s *Server) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uintParam(w, r, "id")
	if !ok {
		return
	}
	req, err := s.ledger.Request(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, requestResultFrom(req))
}

func (s *Server) GetRequestOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uintParam(w, r, "id")
	if !ok {
		return
	}
	owner, err := s.ledger.OwnerOf(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"owner": crypto.FormatAddress(owner)})
}

func (s *Server) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.uintParam(w, r, "id")
	if !ok {
		return
	}
	asset, err := s.ledger.Asset(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assetResultFrom(asset))
}

func (s *Server) GetCategory(w http.ResponseWriter, r *http.Request) {
	index, ok := s.uintParam(w, r, "index")
	if !ok {
		return
	}
	if index > 255 {
		s.writeJSON(w, http.StatusBadRequest, ErrorResult{Code: "range_out_of_bounds", Message: "category index out of range"})
		return
	}
	boundary, err := s.ledger.CategoryBoundary(int(index))
	if err != nil {
		s.writeError(w, err)
		return
	}
	uri, err := s.ledger.TokenURI(uint8(index))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CategoryResult{Index: int(index), Boundary: boundary, URI: uri})
}

func (s *Server) SelectCategory(w http.ResponseWriter, r *http.Request) {
	value, ok := s.uintParam(w, r, "value")
	if !ok {
		return
	}
	category, err := s.ledger.SelectCategory(value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint8{"category": category})
}

func (s *Server) GetTreasury(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.TreasuryBalance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amountResult{Amount: balance.String()})
}

func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	balance, err := s.ledger.Balance(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, amountResult{Amount: balance.String()})
}

// ListEvents returns records after ?since=N, at most ?limit=M.
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	since, limit, ok := s.cursorParams(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.events.Since(since, limit))
}

func (s *Server) cursorParams(w http.ResponseWriter, r *http.Request) (uint64, int, bool) {
	query := r.URL.Query()
	var since uint64
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeBadRequest(w, "since must be an unsigned integer")
			return 0, 0, false
		}
		since = parsed
	}
	limit := defaultEventPage
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeBadRequest(w, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = parsed
	}
	return since, limit, true
}

func (s *Server) uintParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	value, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		s.writeBadRequest(w, name+" must be an unsigned integer")
		return 0, false
	}
	return value, true
}

func decodeBody(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
