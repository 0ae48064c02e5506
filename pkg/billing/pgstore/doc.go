// Package pgstore implements billing.Repository and billing.Catalog on
// PostgreSQL through pgx.
//
// The schema lives in db/migrations and is applied with pg.Migrate. Every
// write is a single statement: Update rewrites the whole row and
// IncrementUsage adds to the counter in place, so concurrent requests never
// lose usage. ConsumeUsage locks the row in the same statement that checks
// the limit.
package pgstore
