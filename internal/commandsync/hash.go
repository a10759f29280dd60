package commandsync

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// hashCommand returns a deterministic SHA-1 over the fields a user can see.
// Server-assigned fields (IDs, versions) are ignored and unset defaults are
// filled in, so a command read back from Discord hashes like its local source.
// DM availability only exists for global commands; Discord does not echo it
// for guild ones.
func hashCommand(c *discordgo.ApplicationCommand, global bool) string {
	data, _ := json.Marshal(normalizeForHash(c, global))
	sum := sha1.Sum(data)
	return fmt.Sprintf("%x", sum)
}

func normalizeForHash(c *discordgo.ApplicationCommand, global bool) map[string]interface{} {
	typ := c.Type
	if typ == 0 {
		typ = discordgo.ChatApplicationCommand
	}
	obj := map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"type":        typ,
		"nsfw":        c.NSFW != nil && *c.NSFW,
	}
	if global {
		obj["dm"] = c.DMPermission == nil || *c.DMPermission
	}
	if c.DefaultMemberPermissions != nil {
		obj["permissions"] = fmt.Sprint(*c.DefaultMemberPermissions)
	}
	if c.NameLocalizations != nil && len(*c.NameLocalizations) > 0 {
		obj["name_localizations"] = *c.NameLocalizations
	}
	if c.DescriptionLocalizations != nil && len(*c.DescriptionLocalizations) > 0 {
		obj["description_localizations"] = *c.DescriptionLocalizations
	}
	if len(c.Options) > 0 {
		obj["options"] = normalizeOptions(c.Options)
	}
	return obj
}

// Option order is kept: Discord shows options in declaration order, so a
// reorder is a real change.
func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]interface{} {
	out := make([]map[string]interface{}, len(opts))
	for i, o := range opts {
		entry := map[string]interface{}{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if o.Autocomplete {
			entry["autocomplete"] = true
		}
		if len(o.NameLocalizations) > 0 {
			entry["name_localizations"] = o.NameLocalizations
		}
		if len(o.DescriptionLocalizations) > 0 {
			entry["description_localizations"] = o.DescriptionLocalizations
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]interface{}, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]interface{}{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.ChannelTypes) > 0 {
			types := append([]discordgo.ChannelType(nil), o.ChannelTypes...)
			sort.Slice(types, func(a, b int) bool { return types[a] < types[b] })
			entry["channel_types"] = types
		}
		if o.MinValue != nil {
			entry["min_value"] = *o.MinValue
		}
		if o.MaxValue != 0 {
			entry["max_value"] = o.MaxValue
		}
		if o.MinLength != nil {
			entry["min_length"] = *o.MinLength
		}
		if o.MaxLength != 0 {
			entry["max_length"] = o.MaxLength
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	return out
}

// diff compares remote against local by name.
type diff struct {
	Added   []string
	Removed []string
	Changed []string
}

func (d diff) empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func diffCommands(scope Scope, remote, local []*discordgo.ApplicationCommand) diff {
	global := scope.IsGlobal()
	remoteHashes := make(map[string]string, len(remote))
	for _, c := range remote {
		remoteHashes[c.Name] = hashCommand(c, global)
	}
	localNames := make(map[string]struct{}, len(local))

	var d diff
	for _, c := range local {
		localNames[c.Name] = struct{}{}
		h, ok := remoteHashes[c.Name]
		switch {
		case !ok:
			d.Added = append(d.Added, c.Name)
		case h != hashCommand(c, global):
			d.Changed = append(d.Changed, c.Name)
		}
	}
	for _, c := range remote {
		if _, ok := localNames[c.Name]; !ok {
			d.Removed = append(d.Removed, c.Name)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

func names(cmds []*discordgo.ApplicationCommand) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Name
	}
	sort.Strings(out)
	return out
}
