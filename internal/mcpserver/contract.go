package mcpserver

// GalleryGuide explains how categories, image refs and the viewer fit
// together, for LLM consumers of the tools.
const GalleryGuide = `# quikpix Gallery Guide

quikpix indexes a directory of JPEG and PNG images and groups them into
categories, one per folder.

## Categories

- A category **key** is the folder path relative to the library root, with
  forward slashes (e.g. ` + "`" + `DCIM/Camera` + "`" + `). Images directly in the root
  belong to no category.
- The **display name** is the folder's base name unless the server config
  maps the key to a friendly name.
- ` + "`" + `item_count` + "`" + ` counts every image in the folder; ` + "`" + `thumbnail_refs` + "`" + ` holds
  only the most recent few.
- ` + "`" + `last_modified` + "`" + ` is the newest modification or capture time in the folder.

## Sorting

` + "`" + `list_categories` + "`" + ` accepts ` + "`" + `sort` + "`" + `:

| mode   | order                                              |
|--------|----------------------------------------------------|
| recent | newest activity first (default)                    |
| name   | display name A-Z                                   |
| count  | most images first                                  |
| pinned | pinned categories first, each group newest first   |

Ties keep the scan order. Hidden categories are left out unless
` + "`" + `include_hidden` + "`" + ` is true.

## Image refs

Every image has a ref of the form ` + "`" + `/api/images/{id}` + "`" + `. Fetch the ref
over HTTP to get the file, or append ` + "`" + `/meta` + "`" + ` for its dimensions and MIME type.
Ids are stable while the file keeps its path.

## Importing

` + "`" + `import_image` + "`" + ` saves a JPEG or PNG from an http(s) URL or a base64 data URI
into a category folder. Existing files are never overwritten. The content must
really be JPEG or PNG; the extension is checked against the bytes.

## Library status

` + "`" + `library_status` + "`" + ` reports one of: idle, loading, ready, empty (no images found),
error (the index could not be read). ` + "`" + `refresh_library` + "`" + ` rescans; a newer
rescan always wins over an older one still running.
`
