// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package interpol expands ${...} variables in configuration values.

Variables are resolved through a chain of lookups. A variable name may start
with a prefix separated by colon, in which case the lookup registered for the
prefix is asked first:

	${sys:user.home}/.myapp
	${env:HOME}
	${const:MaxConns}
	${date:2006-01-02}
	${expr:MaxConns * 2}

Names without a known prefix are resolved by default lookups, typically the
configuration itself, so values can refer to other keys:

	dirs.root      = /myapp
	dirs.templates = ${dirs.root}/templates

Substitution is recursive and detects cycles. Markers that cannot be resolved
are left as is. A default can be given after ":-" and "$${...}" escapes a
marker:

	${db.port:-5432}
	$${not.a.variable}
*/
package interpol
