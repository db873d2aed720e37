// Package core contains the canonical off-chain protocol contracts and
// entities: command variants, request/response envelopes, the funds pull
// pre-approval domain model, and the collaborator interfaces lower-level
// adapters implement. Transport and storage adapters must depend on this
// package; core must not depend on them.
package core
