// Package preflight provides readiness checks for the filesystem paths a
// singleapp process depends on before it competes for a service.
package preflight
