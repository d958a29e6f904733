package handlers

const (
	maxScoreBodyBytes = 4 << 20 // Largest score accepted by the encode endpoint
	maxIDsTokens      = 1 << 20 // Largest token stream accepted by the ids endpoint
)
