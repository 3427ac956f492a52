package tools

import (
	"polaris/internal/domain/services"
)

// Definitions returns the tool schemas advertised to the model, in the order
// they are presented. includeScrape gates the scrapeUrls tool, which is only
// registered when a scrape client is configured.
func Definitions(includeScrape bool) []services.ToolDefinition {
	defs := []services.ToolDefinition{
		{
			Name:        "listFiles",
			Description: "List the files and folders in a folder of the project. Omit parentId to list the top level. Folders are listed before files.",
			InputSchema: objectSchema(map[string]interface{}{
				"parentId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the folder to list. Omit for the project root.",
				},
			}),
		},
		{
			Name:        "readFiles",
			Description: "Read the contents of one or more files by ID. Each file is returned under its own header; missing files are reported without failing the rest.",
			InputSchema: objectSchema(map[string]interface{}{
				"fileIds": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "IDs of the files to read.",
				},
			}, "fileIds"),
		},
		{
			Name:        "createFiles",
			Description: "Create one or more files in a folder. Each file is created independently; a name collision fails only that file. A file cannot share a name with another file in the same folder.",
			InputSchema: objectSchema(map[string]interface{}{
				"files": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":    map[string]interface{}{"type": "string", "description": "File name, without slashes."},
							"content": map[string]interface{}{"type": "string", "description": "File content."},
						},
						"required": []string{"name", "content"},
					},
					"description": "Files to create.",
				},
				"parentId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the folder to create the files in. Omit for the project root.",
				},
			}, "files"),
		},
		{
			Name:        "createFolder",
			Description: "Create a folder. A folder cannot share a name with another folder in the same parent, but may share a name with a file.",
			InputSchema: objectSchema(map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Folder name, without slashes.",
				},
				"parentId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the parent folder. Omit for the project root.",
				},
			}, "name"),
		},
		{
			Name:        "renameFile",
			Description: "Rename a file or folder. The new name must not collide with a sibling of the same kind.",
			InputSchema: objectSchema(map[string]interface{}{
				"fileId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the file or folder to rename.",
				},
				"newName": map[string]interface{}{
					"type":        "string",
					"description": "New name, without slashes.",
				},
			}, "fileId", "newName"),
		},
		{
			Name:        "deleteFiles",
			Description: "Delete files or folders by ID. Folders are deleted recursively with everything inside them. Deleting something already gone is not an error.",
			InputSchema: objectSchema(map[string]interface{}{
				"fileIds": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "IDs of the files or folders to delete.",
				},
			}, "fileIds"),
		},
		{
			Name:        "updateFile",
			Description: "Replace the content of a file. Use an empty string to clear the file.",
			InputSchema: objectSchema(map[string]interface{}{
				"fileId": map[string]interface{}{
					"type":        "string",
					"description": "ID of the file to update.",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "New file content.",
				},
			}, "fileId", "content"),
		},
	}

	if includeScrape {
		defs = append(defs, services.ToolDefinition{
			Name:        "scrapeUrls",
			Description: "Fetch one or more web pages and return their content as markdown. Use this to pull reference material into the conversation.",
			InputSchema: objectSchema(map[string]interface{}{
				"urls": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "URLs to fetch.",
				},
			}, "urls"),
		})
	}

	return defs
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
