// Package db owns the PostgreSQL connection pool and its health check.
//
// The schema is managed by the hosted database; repositories expect:
//
//	clients(id uuid pk, name, phone, address, cpf, birth_date date,
//	        occupation, photo_url, client_since date, created_at, updated_at)
//	procedures(id uuid pk, description, created_at, updated_at)
//	appointments(id uuid pk, client_id fk clients on delete cascade,
//	        procedure_id fk procedures, date date, time time,
//	        status text, note text, created_at, updated_at)
//	intake_records(id uuid pk, client_id fk clients on delete cascade,
//	        kind text, answers jsonb, skin_assessment jsonb,
//	        measurements jsonb, notes jsonb, created_at, updated_at,
//	        unique (client_id, kind))
package db
