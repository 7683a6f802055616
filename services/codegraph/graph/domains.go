// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// DomainOf returns the name of the domain or subdomain a node belongs to.
//
// Linear scan over domain membership lists in first-seen domain order.
// Domain counts are small relative to node counts, so this is not worth
// an extra reverse index.
func DomainOf(g *IndexedGraph, nodeID string) (string, bool) {
	if g == nil || nodeID == "" {
		return "", false
	}
	for _, name := range g.DomainOrder {
		entry := g.DomainIndex[name]
		for _, member := range entry.MemberIDs {
			if member == nodeID {
				return name, true
			}
		}
	}
	return "", false
}

// ParentDomain returns the enclosing domain of a subdomain, walking the
// partOf parent lookup. Returns the input name itself when it is already a
// top-level domain.
func ParentDomain(g *IndexedGraph, name string) (string, bool) {
	if g == nil {
		return "", false
	}
	if parent, ok := g.DomainParent[name]; ok {
		return parent, true
	}
	if _, ok := g.DomainIndex[name]; ok {
		return name, true
	}
	return "", false
}

// DomainMembers returns the member node ids of a domain, or nil if the
// domain is unknown.
func DomainMembers(g *IndexedGraph, name string) []string {
	if g == nil {
		return nil
	}
	if entry, ok := g.DomainIndex[name]; ok {
		return entry.MemberIDs
	}
	return nil
}

// Domains lists all domain and subdomain names in first-seen order.
func Domains(g *IndexedGraph) []string {
	if g == nil {
		return nil
	}
	return g.DomainOrder
}
