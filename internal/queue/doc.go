// Package queue provides the work-item sources the batch runner drains.
//
// Two backends implement Source. Store persists items in SQLite and doubles
// as the local queue managed through the CLI. Sheet reads an XLSX workbook
// with keyword, SEO title, post id and processed-marker columns; a row is
// pending while its marker cell is empty.
//
// Items carry no persisted status: a source reports an item as pending until
// MarkProcessed stamps it. The Status field is owned by the batch runner for
// the duration of one run. Schema changes bump schemaVersion in schema.go;
// users reset the database to adopt the new schema.
package queue
