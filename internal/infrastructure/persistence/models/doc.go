// Package models contains the GORM persistence models of the tax service.
// Domain types stay free of ORM tags; each model converts to and from its
// domain aggregate.
package models
