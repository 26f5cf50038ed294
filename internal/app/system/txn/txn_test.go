package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "plain store error",
			err:  errors.New("membership lookup failed"),
			want: false,
		},
		{
			name: "standalone server rejects transaction numbers",
			err:  mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"},
			want: true,
		},
		{
			name: "transaction numbers not allowed",
			err:  mongo.CommandError{Code: 51, Message: "Illegal operation"},
			want: true,
		},
		{
			name: "operation not permitted in transaction",
			err:  mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"},
			want: true,
		},
		{
			// The unique (project_id, user_id) index surfaces duplicate
			// memberships as code 11000; that is a data conflict, not a
			// deployment limitation, and must not trigger the fallback.
			name: "duplicate key on membership index",
			err:  mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error collection: taskhub.memberships"},
			want: false,
		},
		{
			// Store methods wrap the driver error; the type assertion on
			// mongo.CommandError misses, but the message scan still
			// recognizes the deployment limitation.
			name: "wrapped standalone error from a role change",
			err:  fmt.Errorf("set member role: %w", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}),
			want: true,
		},
		{
			name: "message names transaction and replica set",
			err:  errors.New("transaction failed because this is not a replica set member"),
			want: true,
		},
		{
			name: "message names unsupported sessions",
			err:  errors.New("session operations are not supported on this server"),
			want: true,
		},
		{
			name: "transaction keyword alone",
			err:  errors.New("transaction failed"),
			want: false,
		},
		{
			name: "message names transaction and session",
			err:  errors.New("cannot start transaction in current session state"),
			want: true,
		},
		{
			name: "illegal operation during transaction",
			err:  errors.New("illegal operation during transaction"),
			want: true,
		},
		{
			name: "uppercase driver message",
			err:  errors.New("TRANSACTION FAILED on REPLICA SET"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
