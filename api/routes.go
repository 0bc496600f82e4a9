package api

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	v1 := s.router.Group("/v1")
	{
		v1.GET("/blockhash", s.handleGetBlockhash)
		v1.GET("/height", s.handleGetHeight)

		txs := v1.Group("/transactions")
		{
			txs.POST("", s.handleSubmitTransaction)
			txs.GET("/:id", s.handleGetTransaction)
		}

		v1.GET("/accounts/:address", s.handleGetAccount)

		executions := v1.Group("/executions")
		{
			executions.GET("/pending", s.handleGetPendingExecutions)
			executions.GET("/:address", s.handleGetExecution)
		}

		v1.GET("/ws", s.handleWebSocket)

		if s.config.EnableAirdrop {
			v1.POST("/airdrop", s.handleAirdrop)
		}
	}
}
