package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
)

// PermissionNames maps permission bits to the names shown in the Discord client.
var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite:    "Create Instant Invite",
	discordgo.PermissionKickMembers:            "Kick Members",
	discordgo.PermissionBanMembers:             "Ban Members",
	discordgo.PermissionAdministrator:          "Administrator",
	discordgo.PermissionManageChannels:         "Manage Channels",
	discordgo.PermissionManageGuild:            "Manage Server",
	discordgo.PermissionAddReactions:           "Add Reactions",
	discordgo.PermissionViewAuditLogs:          "View Audit Logs",
	discordgo.PermissionViewChannel:            "View Channel",
	discordgo.PermissionSendMessages:           "Send Messages",
	discordgo.PermissionSendTTSMessages:        "Send TTS Messages",
	discordgo.PermissionManageMessages:         "Manage Messages",
	discordgo.PermissionEmbedLinks:             "Embed Links",
	discordgo.PermissionAttachFiles:            "Attach Files",
	discordgo.PermissionReadMessageHistory:     "Read Message History",
	discordgo.PermissionMentionEveryone:        "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:      "Use External Emojis",
	discordgo.PermissionUseApplicationCommands: "Use Application Commands",
	discordgo.PermissionManageThreads:          "Manage Threads",
	discordgo.PermissionCreatePublicThreads:    "Create Public Threads",
	discordgo.PermissionCreatePrivateThreads:   "Create Private Threads",
	discordgo.PermissionUseExternalStickers:    "Use External Stickers",
	discordgo.PermissionSendMessagesInThreads:  "Send Messages in Threads",
	1 << 46:                                    "Send Voice Messages",
	1 << 49:                                    "Send Polls",
	1 << 50:                                    "Use External Apps",
	discordgo.PermissionVoicePrioritySpeaker:   "Priority Speaker",
	discordgo.PermissionVoiceStreamVideo:       "Stream Video",
	discordgo.PermissionVoiceConnect:           "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:             "Speak",
	discordgo.PermissionVoiceMuteMembers:       "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:     "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:       "Move Members",
	discordgo.PermissionVoiceUseVAD:            "Use Voice Activity Detection",
	discordgo.PermissionVoiceRequestToSpeak:    "Request to Speak",
	discordgo.PermissionUseEmbeddedActivities:  "Use Embedded Activities",
	1 << 42:                                    "Use Soundboard",
	1 << 45:                                    "Use External Sounds",
	discordgo.PermissionChangeNickname:         "Change Nickname",
	discordgo.PermissionManageNicknames:        "Manage Nicknames",
	discordgo.PermissionManageRoles:            "Manage Roles",
	discordgo.PermissionManageWebhooks:         "Manage Webhooks",
	1 << 30:                                    "Manage Expressions (Emojis, Stickers, Sounds)",
	discordgo.PermissionManageEvents:           "Manage Events",
	1 << 41:                                    "View Creator Monetization Analytics",
	1 << 43:                                    "Create Expressions (Emojis, Stickers, Sounds)",
	1 << 44:                                    "Create Events",
	discordgo.PermissionViewGuildInsights:      "View Guild Insights",
	discordgo.PermissionModerateMembers:        "Moderate Members",
}

// PermissionCheck compares the caller's permissions in the channel with the
// command's requirement. It does nothing outside guilds.
type PermissionCheck struct{}

func (PermissionCheck) Name() string  { return "permissions" }
func (PermissionCheck) Priority() int { return 200 }

func (PermissionCheck) Check(_ context.Context, inv *command.Invocation, cmd *command.Command) Outcome {
	required := cmd.Definition.DefaultMemberPermissions
	if !inv.InGuild() || required == 0 {
		return Continue()
	}
	if inv.Permissions&discordgo.PermissionAdministrator != 0 {
		return Continue()
	}
	missing := required &^ inv.Permissions
	if missing == 0 {
		return Continue()
	}
	return Halt(fmt.Sprintf(
		"You need the following permissions to run this command:\n`%s`",
		strings.Join(PermissionList(missing), "`, `"),
	))
}

// PermissionList names every bit set in perms, lowest bit first.
func PermissionList(perms int64) []string {
	var out []string
	for bit := 0; bit < 63; bit++ {
		p := int64(1) << bit
		if perms&p == 0 {
			continue
		}
		name := PermissionNames[p]
		if name == "" {
			name = fmt.Sprintf("0x%x", p)
		}
		out = append(out, name)
	}
	return out
}
