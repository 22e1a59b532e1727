package modlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const (
	colorRed     = 0xE74C3C
	colorDarkRed = 0x992D22
	colorGreen   = 0x2ECC71
	colorOrange  = 0xE67E22
	colorBlue    = 0x3498DB
	colorYellow  = 0xF1C40F
	colorGray    = 0x979C9F

	fieldLimit = 1024
)

var infractionTitles = map[models.InfractionKind]string{
	models.KindWarn:     "Advertencia",
	models.KindMute:     "Silencio",
	models.KindUnmute:   "Fin del silencio",
	models.KindKick:     "Expulsión",
	models.KindBan:      "Baneo",
	models.KindUnban:    "Desbaneo",
	models.KindCleanBan: "Baneo con limpieza",
}

var infractionColors = map[models.InfractionKind]int{
	models.KindWarn:     colorYellow,
	models.KindMute:     colorOrange,
	models.KindUnmute:   colorGreen,
	models.KindKick:     colorRed,
	models.KindBan:      colorDarkRed,
	models.KindUnban:    colorGreen,
	models.KindCleanBan: colorDarkRed,
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return truncate(s, fieldLimit)
}

func userFooter(userID string) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: "ID de usuario: " + userID}
}

// InfractionEmbed renders a recorded infraction.
func InfractionEmbed(inf models.Infraction) *discordgo.MessageEmbed {
	title, ok := infractionTitles[inf.Kind]
	if !ok {
		title = string(inf.Kind)
	}
	color, ok := infractionColors[inf.Kind]
	if !ok {
		color = colorBlue
	}
	embed := &discordgo.MessageEmbed{
		Title: "Moderación: " + title,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Usuario", Value: fmt.Sprintf("<@%s> (%s)", inf.UserID, inf.UserID)},
			{Name: "Moderador", Value: fmt.Sprintf("<@%s>", inf.ModeratorID)},
			{Name: "Razón", Value: orPlaceholder(inf.Reason, "*Sin razón especificada*")},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Caso #%d | ID de usuario: %s | ID de moderador: %s", inf.ID, inf.UserID, inf.ModeratorID),
		},
	}
	if !inf.Timestamp.IsZero() {
		embed.Timestamp = inf.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

// MemberJoinEmbed describes a new member. The account age is derived from
// the user's snowflake.
func MemberJoinEmbed(user *discordgo.User, memberCount int, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Miembro nuevo",
		Description: fmt.Sprintf("<@%s> %s", user.ID, user.Username),
		Color:       colorGreen,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")},
		Footer:      userFooter(user.ID),
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		days := int(now.Sub(created).Hours() / 24)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Cuenta creada",
			Value: fmt.Sprintf("%s\n(hace %d días)", created.UTC().Format("2006-01-02 15:04:05 UTC"), days),
		})
	}
	if memberCount > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Miembros", Value: fmt.Sprint(memberCount), Inline: true,
		})
	}
	return embed
}

// MemberLeaveEmbed describes a member who left. member may come from the
// state cache and carry the join date and roles, or only the user.
func MemberLeaveEmbed(member *discordgo.Member, memberCount int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Miembro salió",
		Description: fmt.Sprintf("<@%s> %s", member.User.ID, member.User.Username),
		Color:       colorGray,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: member.User.AvatarURL("128")},
		Footer:      userFooter(member.User.ID),
	}
	joined := "Desconocido"
	if !member.JoinedAt.IsZero() {
		joined = member.JoinedAt.UTC().Format("2006-01-02 15:04:05 UTC")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Se unió", Value: joined})
	if len(member.Roles) > 0 {
		mentions := lo.Map(member.Roles, func(id string, _ int) string { return "<@&" + id + ">" })
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Roles", Value: truncate(strings.Join(mentions, ", "), fieldLimit),
		})
	}
	if memberCount > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Miembros", Value: fmt.Sprint(memberCount), Inline: true,
		})
	}
	return embed
}

// MessageDeleteEmbed describes a deleted message known from the state cache.
func MessageDeleteEmbed(msg *discordgo.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Mensaje eliminado",
		Color: colorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Autor", Value: fmt.Sprintf("<@%s> (%s)", msg.Author.ID, msg.Author.Username)},
			{Name: "Canal", Value: "<#" + msg.ChannelID + ">", Inline: true},
			{Name: "ID del mensaje", Value: msg.ID, Inline: true},
			{Name: "Contenido", Value: orPlaceholder(msg.Content, "*Sin texto*")},
		},
		Footer: userFooter(msg.Author.ID),
	}
	if len(msg.Attachments) > 0 {
		links := lo.Map(msg.Attachments, func(a *discordgo.MessageAttachment, _ int) string {
			return fmt.Sprintf("[%s](%s)", a.Filename, a.URL)
		})
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Adjuntos", Value: truncate(strings.Join(links, "\n"), fieldLimit),
		})
	}
	return embed
}

// MessageEditEmbed describes an edit. It returns nil when the text did not
// change (embeds resolving, pins).
func MessageEditEmbed(before, after *discordgo.Message) *discordgo.MessageEmbed {
	if before == nil || after == nil || before.Content == after.Content {
		return nil
	}
	link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", after.GuildID, after.ChannelID, after.ID)
	return &discordgo.MessageEmbed{
		Title: "Mensaje editado",
		Color: colorOrange,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Autor", Value: fmt.Sprintf("<@%s> (%s)", before.Author.ID, before.Author.Username)},
			{Name: "Canal", Value: "<#" + after.ChannelID + ">", Inline: true},
			{Name: "ID del mensaje", Value: after.ID, Inline: true},
			{Name: "Antes", Value: orPlaceholder(before.Content, "*Sin texto*")},
			{Name: "Después", Value: orPlaceholder(after.Content, "*Sin texto*")},
			{Name: "Ir al mensaje", Value: "[Click aquí](" + link + ")"},
		},
		Footer: userFooter(before.Author.ID),
	}
}

// BanEmbed describes a ban or an unban seen on the gateway.
func BanEmbed(user *discordgo.User, banned bool) *discordgo.MessageEmbed {
	title, color := "Miembro baneado", colorDarkRed
	if !banned {
		title, color = "Miembro desbaneado", colorGreen
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("<@%s> %s", user.ID, user.Username),
		Color:       color,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")},
		Footer:      userFooter(user.ID),
	}
}

// VoiceEmbed classifies a voice state change. It returns an empty log type
// when the member stayed in the same channel (mute, deafen).
func VoiceEmbed(userID, beforeChannel, afterChannel string) (string, *discordgo.MessageEmbed) {
	switch {
	case beforeChannel == "" && afterChannel != "":
		return "voice_join", &discordgo.MessageEmbed{
			Title:       "Entró a un canal de voz",
			Description: fmt.Sprintf("<@%s> entró a <#%s>", userID, afterChannel),
			Color:       colorGreen,
			Footer:      userFooter(userID),
		}
	case beforeChannel != "" && afterChannel == "":
		return "voice_leave", &discordgo.MessageEmbed{
			Title:       "Salió de un canal de voz",
			Description: fmt.Sprintf("<@%s> salió de <#%s>", userID, beforeChannel),
			Color:       colorRed,
			Footer:      userFooter(userID),
		}
	case beforeChannel != "" && afterChannel != "" && beforeChannel != afterChannel:
		return "voice_move", &discordgo.MessageEmbed{
			Title:       "Cambió de canal de voz",
			Description: fmt.Sprintf("<@%s> pasó de <#%s> a <#%s>", userID, beforeChannel, afterChannel),
			Color:       colorBlue,
			Footer:      userFooter(userID),
		}
	}
	return "", nil
}

// Entry is an embed paired with its log type.
type Entry struct {
	Type  string
	Embed *discordgo.MessageEmbed
}

// MemberUpdateEntries compares two member snapshots and describes nickname
// and role changes.
func MemberUpdateEntries(before, after *discordgo.Member) []Entry {
	if before == nil || after == nil || after.User == nil {
		return nil
	}
	var out []Entry
	mention := fmt.Sprintf("<@%s> (%s)", after.User.ID, after.User.Username)

	if before.Nick != after.Nick {
		out = append(out, Entry{Type: "nickname_change", Embed: &discordgo.MessageEmbed{
			Title: "Apodo cambiado",
			Color: colorBlue,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Miembro", Value: mention},
				{Name: "Antes", Value: orPlaceholder(before.Nick, "*Sin apodo*"), Inline: true},
				{Name: "Después", Value: orPlaceholder(after.Nick, "*Sin apodo*"), Inline: true},
			},
			Footer: userFooter(after.User.ID),
		}})
	}

	added, removed := lo.Difference(after.Roles, before.Roles)
	roleMentions := func(ids []string) string {
		return strings.Join(lo.Map(ids, func(id string, _ int) string { return "<@&" + id + ">" }), ", ")
	}
	if len(added) > 0 {
		out = append(out, Entry{Type: "role_add", Embed: &discordgo.MessageEmbed{
			Title: "Rol añadido",
			Color: colorGreen,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Miembro", Value: mention},
				{Name: "Roles añadidos", Value: truncate(roleMentions(added), fieldLimit)},
			},
			Footer: userFooter(after.User.ID),
		}})
	}
	if len(removed) > 0 {
		out = append(out, Entry{Type: "role_remove", Embed: &discordgo.MessageEmbed{
			Title: "Rol quitado",
			Color: colorRed,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Miembro", Value: mention},
				{Name: "Roles quitados", Value: truncate(roleMentions(removed), fieldLimit)},
			},
			Footer: userFooter(after.User.ID),
		}})
	}
	return out
}
