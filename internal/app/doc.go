// Package app composes the vault ledger engine into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Directory identities
//	│   └── vault/          # Vaults, goals, membership, contributions
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # DirectoryStore and VaultStore
//	│   ├── memory/         # In-memory implementation for tests and dev
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/
//	│   ├── directory/      # Registration and admin verification
//	│   ├── factory/        # Vault creation and key allocation
//	│   └── vaults/         # Solo/group engines, registry, expiry sweeper
//	├── token/              # Funds-transfer ledger collaborator
//	├── httpapi/            # HTTP handlers, error mapping, bearer auth
//	├── system/             # Service lifecycle management
//	├── config/             # Environment configuration
//	└── metrics/            # Prometheus instrumentation
//
// # Responsibilities
//
// The app package wires the directory, factory and vault engines to their
// stores and the token ledger, registers the long-running services (the
// expiry sweeper) with the lifecycle manager, and hands the assembled
// Application to cmd/engine and the HTTP layer.
//
// Business rules live in internal/app/services/; this package holds no
// policy of its own beyond choosing defaults for absent collaborators
// (in-memory store, in-process ledger, system clock).
package app
