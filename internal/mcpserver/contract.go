package mcpserver

// ItemFormatContract describes the item fields LLM consumers should follow
// when creating or updating items.
const ItemFormatContract = `# Itemdesk Item Format Contract

An item in the collection has these fields:

| Field       | Type            | Set by | Notes                                   |
|-------------|-----------------|--------|-----------------------------------------|
| id          | string          | server | opaque, never invent one                |
| name        | string          | you    | required                                |
| description | string          | you    | required                                |
| category    | string          | you    | optional, omitted when empty            |
| tags        | list of strings | you    | optional, omitted when empty            |
| created_at  | timestamp       | server | ISO-8601                                |
| updated_at  | timestamp       | server | ISO-8601, refreshed on every update     |

## Rules

1. **Never send id, created_at or updated_at.** The collection assigns them.
2. **Tags** are passed to the tools as one comma-separated string
   (` + "`" + `"red, large"` + "`" + `). Entries are trimmed and empty entries dropped.
3. **update_item replaces** name and description with what you pass, and
   category and tags when they are non-empty. Empty category or tags leave the
   stored values alone. Read the item first with get_item to keep the rest.
4. **After every change** the item list is fetched again; list_items and
   search_items always reflect the collection, not a local copy.
5. **Search** is a case-insensitive substring match over name, description,
   category and each tag.
`
