// Copyright (c) 2018, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package fileconf reads and writes configuration files for the conf package.

Formats are chosen by file extension: yml and yaml, json, toml, xml, ini,
properties and env. Every format reads a file into a tree of nodes. Tree based
formats keep the order of keys; properties files use configuration keys, so
dotted names become nested nodes.

FileHandler loads a file into a configuration and saves it back:

	config := conf.NewHierarchicalConfig()
	handler := fileconf.NewFileHandler(config, fileconf.WithPath("myapp.yml"))

	if err := handler.Load(); err != nil {
		return err
	}

	config.Set("db.port", 5433)
	err := handler.Save()

Relative paths are searched in the directories from the GOCONF_PATH
environment variable or in the current directory.

Loader is a configuration loader for conf.Processor. Locators for it are glob
patterns. For example:

	file:myapp.yml
	file:myapp/*.json
*/
package fileconf
