// Package accounts provides implementations of registration.AccountCreator:
// a fixed-delay stand-in, a PostgreSQL store and a tracing decorator.
package accounts
