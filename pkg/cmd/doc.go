// Package cmd provides CLI commands for the EJ Supervision importer.
//
// This package implements the command-line interface for ejimporter,
// exposing one command per source database migration stage plus a chained
// run over the whole sequence.
//
// # Available Commands
//
// The cmd package currently provides:
//   - justice: Run the Justice DB import stage
//   - operations: Run the Operations DB import stage
//   - financial: Run the Financial DB import stage
//   - lob: Run the LOB column processing stage
//   - run: Run all four stages in order, honoring the completion signal
//
// # Command Structure
//
// Each command is implemented as a separate function that returns a
// *cli.Command, following the urfave/cli/v3 pattern. Commands are wired
// into the application via the fx module in this package.
//
// # Configuration
//
// Settings come from ejimporter.yaml (when present), the legacy
// environment variables (MSSQL_TARGET_CONN_STR, EJ_CSV_DIR, EJ_LOG_DIR,
// INCLUDE_EMPTY_TABLES, SQL_TIMEOUT), and per-command flags, in
// increasing order of precedence.
//
// # Example Usage
//
//	ejimporter justice --dsn "sqlserver://sa:pw@host?database=ELPaso_TX"
//	ejimporter financial --include-empty --timeout 10m
//	ejimporter run --auto-advance
package cmd
