// Copyright (c) 2018, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package conf is an extensible solution for application configuration. It keeps
configuration data either in a flat key/value store (BaseConfig) or in a tree of
nodes (HierarchicalConfig) and expands ${...} variables in values when they are
read.

	config := conf.FromMap(
		conf.M{
			"dirs": conf.M{
				"root":      "/myapp",
				"templates": "${dirs.root}/templates",
			},
			"tables": conf.M{
				"table": conf.A{
					conf.M{"@type": "system", "name": "users"},
					conf.M{"@type": "app", "name": "documents"},
				},
			},
		},
	)

	config.Get("dirs.templates")       // "/myapp/templates"
	config.Get("tables.table(1).name") // "documents"
	config.Get("tables.table[@type]")  // []any{"system", "app"}

Variables are resolved by lookups. Variables with a prefix, like
${env:HOME} or ${sys:user.name}, are resolved by the lookup registered for
the prefix. Other variables are keys of the same configuration. A variable that
cannot be resolved is left as is; ${name:-default} provides a fallback value. To
escape variable expansion add one more "$" symbol before variable.

	templatesDir: "$${dirs.root}/templates"

Configuration can be loaded in layers with Processor. Loaders are registered
by name and referenced in locators:

	proc := conf.NewProcessor(
		conf.ProcessorConfig{
			Loaders: map[string]conf.Loader{
				"env":  envconf.NewLoader(),
				"file": fileconf.NewLoader("/etc/myapp"),
			},
		},
	)

	config, err := proc.LoadConfig(
		[]any{
			"file:dirs.yml",
			"file:db.json",
			"env:^MYAPP_",
		},
	)

Layers loaded by the rightmost locator have the highest priority. Processor
also supports $ref and $include directives. $ref directive assigns the value of
another configuration parameter:

	myapp:
	  db:
	    defaultOptions:
	      PrintWarn:  0
	      RaiseError: 1

	    connectors:
	      stat:
	        host: "stat.mydb.com"
	        options:
	          $ref: "myapp.db.defaultOptions"

	      metrics:
	        host: "metrics.mydb.com"
	        options:
	          $ref:
	            firstDefined: ["myapp.db.metricsOptions", "myapp.db.defaultOptions"]
	            default: {}

$include directive loads and merges configuration layers in place:

	myapp:
	  db:
	    connectors:
	      $include: ["file:connectors.yml"]

Configurations can be decoded into structures. Field names are matched case
insensitively or by the conf tag:

	var dbConfig struct {
		Host    string
		Timeout time.Duration `conf:"connectTimeout"`
	}

	err := config.Decode("myapp.db.connectors.stat", &dbConfig)
*/
package conf
