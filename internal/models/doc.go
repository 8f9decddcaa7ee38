// Package models defines the core domain models for tallybot.
//
// A Group mirrors one Telegram chat. Its ledger is the list of Expenses
// (shared costs fronted by one member) and Settlements (recorded
// repayments between two members), plus the tracked member roster used
// for display-name resolution.
//
// Balances and transfer suggestions are derived from the ledger by
// internal/ledger and are never persisted; the ledger is the source of
// truth and balances are recomputed from it on every read.
//
// Members are identified by their Telegram user id (int64). Users are
// accounts for the companion REST API; the bot itself never needs one.
package models
