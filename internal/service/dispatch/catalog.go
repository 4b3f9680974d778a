package dispatch

import "github.com/mcpagent/mcpagent/internal/model"

func param(name, typ, description string, def any, required bool) model.Param {
	return model.Param{
		Name: name,
		ParamSpec: model.ParamSpec{
			Type:        typ,
			Description: description,
			Default:     def,
			Required:    required,
		},
	}
}

// catalog declares every tool the agent serves, in the order they are advertised.
func (d *Dispatcher) catalog() []entry {
	return []entry{
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_read_file",
				Description: "Read the contents of a file",
				Params: []model.Param{
					param("path", "string", "Path to the file to read", nil, true),
					param("encoding", "string", "File encoding: utf-8, base64 or hex (default: utf-8)", "utf-8", false),
				},
			},
			handler: HandlerFunc(d.readFile),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_write_file",
				Description: "Write content to a file",
				Params: []model.Param{
					param("path", "string", "Path to the file to write", nil, true),
					param("content", "string", "Content to write to the file", nil, true),
					param("encoding", "string", "Encoding of content: utf-8, base64 or hex (default: utf-8)", "utf-8", false),
				},
			},
			handler: HandlerFunc(d.writeFile),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_list_directory",
				Description: "List contents of a directory",
				Params: []model.Param{
					param("path", "string", "Path to the directory to list", ".", false),
					param("recursive", "boolean", "List recursively", false, false),
					param("showHidden", "boolean", "Show hidden files", false, false),
				},
			},
			handler: HandlerFunc(d.listDirectory),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_get_info",
				Description: "Get file/directory information",
				Params: []model.Param{
					param("path", "string", "Path to get info for", nil, true),
				},
			},
			handler: HandlerFunc(d.getInfo),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_create_directory",
				Description: "Create a directory",
				Params: []model.Param{
					param("path", "string", "Path to the directory to create", nil, true),
					param("recursive", "boolean", "Create parent directories if needed", true, false),
				},
			},
			handler: HandlerFunc(d.createDirectory),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_delete",
				Description: "Delete a file or directory",
				Params: []model.Param{
					param("path", "string", "Path to delete", nil, true),
					param("recursive", "boolean", "Delete recursively for directories", true, false),
				},
				Dangerous: true,
			},
			handler: HandlerFunc(d.deletePath),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_copy",
				Description: "Copy a file or directory",
				Params: []model.Param{
					param("source", "string", "Source path", nil, true),
					param("destination", "string", "Destination path", nil, true),
				},
			},
			handler: HandlerFunc(d.copyPath),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "filesystem_move",
				Description: "Move or rename a file or directory",
				Params: []model.Param{
					param("source", "string", "Source path", nil, true),
					param("destination", "string", "Destination path", nil, true),
				},
			},
			handler: HandlerFunc(d.movePath),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "shell_execute",
				Description: "Execute a shell command",
				Params: []model.Param{
					param("command", "string", "Command to execute", nil, true),
					param("timeout", "number", "Timeout in seconds (default: 30)", 30, false),
					param("cwd", "string", "Working directory", ".", false),
				},
				Dangerous: true,
			},
			handler: HandlerFunc(d.shellExecute),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "shell_execute_interactive",
				Description: "Execute a command with interactive streaming output",
				Params: []model.Param{
					param("command", "string", "Command to execute", nil, true),
					param("timeout", "number", "Timeout in seconds (default: 60)", 60, false),
					param("cwd", "string", "Working directory", ".", false),
				},
				Dangerous: true,
			},
			handler: HandlerFunc(d.shellExecuteInteractive),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "system_get_info",
				Description: "Get system information",
			},
			handler: HandlerFunc(d.systemInfo),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "system_get_disk_usage",
				Description: "Get disk usage information",
				Params: []model.Param{
					param("path", "string", "Path to check (default: /)", "/", false),
				},
			},
			handler: HandlerFunc(d.diskUsage),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "system_get_memory_info",
				Description: "Get memory information",
			},
			handler: HandlerFunc(d.memoryInfo),
		},
		{
			ToolDescriptor: model.ToolDescriptor{
				Name:        "system_list_processes",
				Description: "List running processes",
				Params: []model.Param{
					param("filter", "string", "Filter by name (optional)", nil, false),
				},
			},
			handler: HandlerFunc(d.listProcesses),
		},
	}
}
