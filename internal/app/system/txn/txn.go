// internal/app/system/txn/txn.go

// Package txn serializes multi-document writes. Membership and task
// mutations must apply the "read state, validate invariant, commit"
// sequence atomically per project, so callers run the whole sequence
// inside WithTxn and re-read project state from the session context.
//
// Standalone mongod instances (and some managed deployments) do not
// support multi-document transactions. WithTxn detects that case and
// falls back to running the callback without a transaction; the unique
// indexes created at startup still protect against duplicate writes, and
// single-instance deployments serve one write at a time per connection.
package txn

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTxn runs fn inside a MongoDB transaction when the deployment
// supports one, and directly otherwise. fn must use the ctx it is given
// for every read and write so they join the session.
func WithTxn(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err indicates the deployment cannot run
// multi-document transactions (standalone server, old wire version, or a
// managed service without session support).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if ce, ok := err.(mongo.CommandError); ok {
		cmdErr = ce
	}
	switch cmdErr.Code {
	case 20, 51, 263:
		// 20: IllegalOperation (transactions need a replica set)
		// 51: transaction numbers not allowed
		// 263: operation not permitted in transaction
		return true
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }

	if has("transaction") && has("replica set") {
		return true
	}
	if has("session") && has("not supported") {
		return true
	}
	if has("transaction") && has("session") {
		return true
	}
	if has("illegal operation") && has("transaction") {
		return true
	}
	return false
}
