// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package tree implements the node model of hierarchical configurations and the
expression engine that addresses nodes by keys.

A key is a sequence of node names separated by dots. A name may be followed by
an index in parentheses to select one of several nodes with the same name, and
the last element of a key may reference an attribute:

	tables.table(0).fields.field(2).name
	tables.table(1)[@type]
	server..name

A dot that is part of a node name is written twice. Given the tree

	tables
	  table [@type=system]
	    name: users
	  table [@type=application]
	    name: documents

the key "tables.table.name" selects both name nodes, "tables.table(1).name"
only the second one and "tables.table(0)[@type]" the attribute of the first
table.
*/
package tree
