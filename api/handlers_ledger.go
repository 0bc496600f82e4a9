package api

import (
	"net/http"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/gin-gonic/gin"

	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errorsmod.IsOf(err, app.ErrTxNotFound, types.ErrAccountNotFound):
		return http.StatusNotFound
	case errorsmod.IsOf(err, app.ErrDuplicateTransaction):
		return http.StatusConflict
	case errorsmod.IsOf(err, app.ErrAirdropDisabled):
		return http.StatusForbidden
	}
	if codespace, _, _ := errorsmod.ABCIInfo(err, false); codespace == errorsmod.UndefinedCodespace {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func (s *Server) writeError(c *gin.Context, err error, result *app.TxResult) {
	codespace, code, msg := errorsmod.ABCIInfo(err, false)
	status := statusFor(err)
	if result != nil {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, ErrorResponse{Error: msg, Codespace: codespace, Code: code, Result: result})
}

func (s *Server) handleGetBlockhash(c *gin.Context) {
	hash, lastValid := s.backend.LatestBlockhash()
	c.JSON(http.StatusOK, BlockhashResponse{Blockhash: hash, LastValidBlockHeight: lastValid})
}

func (s *Server) handleGetHeight(c *gin.Context) {
	c.JSON(http.StatusOK, HeightResponse{Height: s.backend.Height()})
}

// handleSubmitTransaction executes a signed transaction. Program failures
// return 422 with the recorded result.
func (s *Server) handleSubmitTransaction(c *gin.Context) {
	var req SubmitTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	tx, err := types.DecodeTransaction(req.Tx)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	res, err := s.backend.SubmitTransaction(tx)
	if err != nil {
		s.writeError(c, err, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	res, err := s.backend.TxStatus(c.Param("id"))
	if err != nil {
		s.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetAccount(c *gin.Context) {
	addr, ok := s.addressParam(c)
	if !ok {
		return
	}
	acct, err := s.backend.GetAccount(addr)
	if err != nil {
		s.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, AccountResponse{Address: addr, Account: *acct})
}

func (s *Server) handleAirdrop(c *gin.Context) {
	var req AirdropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.backend.Airdrop(req.Address, req.Lamports); err != nil {
		s.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": req.Address, "lamports": strconv.FormatUint(req.Lamports, 10)})
}

func (s *Server) addressParam(c *gin.Context) (types.Address, bool) {
	addr, err := types.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return types.Address{}, false
	}
	return addr, true
}
