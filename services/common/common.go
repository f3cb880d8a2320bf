package common

import (
	"fmt"
	"log/slog"

	"guildXPBot/models"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// IsAdmin reports whether the invoking member carries the Administrator
// permission. Uses member data from the interaction, so no privileged
// intent is needed.
func IsAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}

	for _, roleID := range i.Member.Roles {
		role, err := s.State.Role(i.GuildID, roleID)
		if err != nil || role == nil {
			roles, err := s.GuildRoles(i.GuildID)
			if err != nil {
				slog.Error("fetching roles from API", "guild_id", i.GuildID, "error", err)
				continue
			}

			for _, r := range roles {
				if r.ID == roleID {
					role = r
					break
				}
			}

			if role == nil {
				slog.Warn("role not found in guild", "role_id", roleID, "guild_id", i.GuildID)
				continue
			}
		}

		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}

	return false
}

// SendError reports an error back to the invoking channel as an ephemeral
// message and persists it to the error log table.
func SendError(s *discordgo.Session, i *discordgo.InteractionCreate, err error, db *gorm.DB) {
	slog.Error("command error", "error", err)

	guildID := ""
	if i != nil {
		guildID = i.GuildID
		localErr := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: fmt.Sprintf("An error occured: %v", err),
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if localErr != nil {
			slog.Error("sending interaction response", "error", localErr)
		}
	}
	errLog := models.ErrorLog{
		GuildID: guildID,
		Message: fmt.Sprintf("%v", err),
	}
	db.Create(&errLog)
}

// RespondEphemeral replies to an interaction with a message only the invoker
// can see. Errors are swallowed; there is nothing useful to do when the
// acknowledgement itself fails.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("sending interaction response", "error", err)
	}
}

// Respond replies to an interaction with a visible message.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
	if err != nil {
		slog.Error("sending interaction response", "error", err)
	}
}

// GetUsernameFromUser extracts a display name from a discordgo.User.
func GetUsernameFromUser(user *discordgo.User) string {
	if user == nil {
		return "Unknown User"
	}
	username := user.GlobalName
	if username == "" {
		username = user.Username
	}
	if username == "" {
		return "Unknown User"
	}
	return username
}

// UpdateUserUsername refreshes the cached username if it changed.
func UpdateUserUsername(db *gorm.DB, user *models.User, username string) {
	if user.Username == nil || *user.Username != username {
		user.Username = &username
		db.Save(user)
	}
}

// DisplayName resolves a member's name from the database cache first, then
// the session state. Without the members intent the state cache is sparse.
func DisplayName(db *gorm.DB, s *discordgo.Session, guildID string, userID string) string {
	var user models.User
	if err := db.Where("discord_id = ? AND guild_id = ?", userID, guildID).First(&user).Error; err == nil {
		if user.Username != nil && *user.Username != "" {
			return *user.Username
		}
	}

	if member, err := s.State.Member(guildID, userID); err == nil && member != nil {
		return GetUsernameFromUser(member.User)
	}
	if member, err := s.GuildMember(guildID, userID); err == nil && member != nil {
		return GetUsernameFromUser(member.User)
	}

	return "Unknown User"
}

// Contains reports whether s contains e.
func Contains[T comparable](s []T, e T) bool {
	for _, v := range s {
		if v == e {
			return true
		}
	}
	return false
}
