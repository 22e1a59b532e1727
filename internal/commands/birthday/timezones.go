package birthday

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

type zone struct {
	label string
	name  string
}

// zones are the suggestions offered while typing a timezone. Any valid IANA
// name is accepted, not only these.
var zones = []zone{
	{"UTC", "UTC"},
	{"EE.UU. Este (America/New_York)", "America/New_York"},
	{"EE.UU. Centro (America/Chicago)", "America/Chicago"},
	{"EE.UU. Montaña (America/Denver)", "America/Denver"},
	{"EE.UU. Pacífico (America/Los_Angeles)", "America/Los_Angeles"},
	{"Alaska (America/Anchorage)", "America/Anchorage"},
	{"Hawái (Pacific/Honolulu)", "Pacific/Honolulu"},
	{"Canadá Atlántico (America/Halifax)", "America/Halifax"},
	{"Canadá Centro (America/Winnipeg)", "America/Winnipeg"},
	{"Canadá Montaña (America/Edmonton)", "America/Edmonton"},
	{"Canadá Pacífico (America/Vancouver)", "America/Vancouver"},
	{"Canadá Este (America/Toronto)", "America/Toronto"},
	{"Terranova (America/St_Johns)", "America/St_Johns"},
	{"Ciudad de México (America/Mexico_City)", "America/Mexico_City"},
	{"Monterrey (America/Monterrey)", "America/Monterrey"},
	{"Tijuana (America/Tijuana)", "America/Tijuana"},
	{"Guatemala (America/Guatemala)", "America/Guatemala"},
	{"Costa Rica (America/Costa_Rica)", "America/Costa_Rica"},
	{"Panamá (America/Panama)", "America/Panama"},
	{"Cuba (America/Havana)", "America/Havana"},
	{"República Dominicana (America/Santo_Domingo)", "America/Santo_Domingo"},
	{"Puerto Rico (America/Puerto_Rico)", "America/Puerto_Rico"},
	{"Brasil (America/Sao_Paulo)", "America/Sao_Paulo"},
	{"Argentina (America/Argentina/Buenos_Aires)", "America/Argentina/Buenos_Aires"},
	{"Chile (America/Santiago)", "America/Santiago"},
	{"Colombia (America/Bogota)", "America/Bogota"},
	{"Perú (America/Lima)", "America/Lima"},
	{"Venezuela (America/Caracas)", "America/Caracas"},
	{"Ecuador (America/Guayaquil)", "America/Guayaquil"},
	{"Bolivia (America/La_Paz)", "America/La_Paz"},
	{"Paraguay (America/Asuncion)", "America/Asuncion"},
	{"Uruguay (America/Montevideo)", "America/Montevideo"},
	{"Reino Unido (Europe/London)", "Europe/London"},
	{"Irlanda (Europe/Dublin)", "Europe/Dublin"},
	{"Portugal (Europe/Lisbon)", "Europe/Lisbon"},
	{"España (Europe/Madrid)", "Europe/Madrid"},
	{"Canarias (Atlantic/Canary)", "Atlantic/Canary"},
	{"Francia (Europe/Paris)", "Europe/Paris"},
	{"Países Bajos (Europe/Amsterdam)", "Europe/Amsterdam"},
	{"Bélgica (Europe/Brussels)", "Europe/Brussels"},
	{"Alemania (Europe/Berlin)", "Europe/Berlin"},
	{"Suiza (Europe/Zurich)", "Europe/Zurich"},
	{"Italia (Europe/Rome)", "Europe/Rome"},
	{"Austria (Europe/Vienna)", "Europe/Vienna"},
	{"Polonia (Europe/Warsaw)", "Europe/Warsaw"},
	{"Chequia (Europe/Prague)", "Europe/Prague"},
	{"Grecia (Europe/Athens)", "Europe/Athens"},
	{"Turquía (Europe/Istanbul)", "Europe/Istanbul"},
	{"Rumanía (Europe/Bucharest)", "Europe/Bucharest"},
	{"Suecia (Europe/Stockholm)", "Europe/Stockholm"},
	{"Noruega (Europe/Oslo)", "Europe/Oslo"},
	{"Dinamarca (Europe/Copenhagen)", "Europe/Copenhagen"},
	{"Finlandia (Europe/Helsinki)", "Europe/Helsinki"},
	{"Rusia Moscú (Europe/Moscow)", "Europe/Moscow"},
	{"Emiratos (Asia/Dubai)", "Asia/Dubai"},
	{"Arabia Saudí (Asia/Riyadh)", "Asia/Riyadh"},
	{"Israel (Asia/Jerusalem)", "Asia/Jerusalem"},
	{"Irán (Asia/Tehran)", "Asia/Tehran"},
	{"Pakistán (Asia/Karachi)", "Asia/Karachi"},
	{"India (Asia/Kolkata)", "Asia/Kolkata"},
	{"Nepal (Asia/Kathmandu)", "Asia/Kathmandu"},
	{"Bangladés (Asia/Dhaka)", "Asia/Dhaka"},
	{"Tailandia (Asia/Bangkok)", "Asia/Bangkok"},
	{"Vietnam (Asia/Ho_Chi_Minh)", "Asia/Ho_Chi_Minh"},
	{"Malasia (Asia/Kuala_Lumpur)", "Asia/Kuala_Lumpur"},
	{"Singapur (Asia/Singapore)", "Asia/Singapore"},
	{"Indonesia Oeste (Asia/Jakarta)", "Asia/Jakarta"},
	{"Filipinas (Asia/Manila)", "Asia/Manila"},
	{"China (Asia/Shanghai)", "Asia/Shanghai"},
	{"Hong Kong (Asia/Hong_Kong)", "Asia/Hong_Kong"},
	{"Taiwán (Asia/Taipei)", "Asia/Taipei"},
	{"Japón (Asia/Tokyo)", "Asia/Tokyo"},
	{"Corea (Asia/Seoul)", "Asia/Seoul"},
	{"Australia Oeste (Australia/Perth)", "Australia/Perth"},
	{"Australia Centro (Australia/Adelaide)", "Australia/Adelaide"},
	{"Australia Este (Australia/Sydney)", "Australia/Sydney"},
	{"Nueva Zelanda (Pacific/Auckland)", "Pacific/Auckland"},
	{"Sudáfrica (Africa/Johannesburg)", "Africa/Johannesburg"},
	{"Egipto (Africa/Cairo)", "Africa/Cairo"},
	{"Nigeria (Africa/Lagos)", "Africa/Lagos"},
	{"Kenia (Africa/Nairobi)", "Africa/Nairobi"},
	{"Marruecos (Africa/Casablanca)", "Africa/Casablanca"},
}

// zoneChoices returns up to 25 suggestions whose label contains typed.
func zoneChoices(typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimSpace(typed))
	matches := lo.Filter(zones, func(z zone, _ int) bool {
		return strings.Contains(strings.ToLower(z.label), typed)
	})
	if len(matches) > 25 {
		matches = matches[:25]
	}
	return lo.Map(matches, func(z zone, _ int) *discordgo.ApplicationCommandOptionChoice {
		return &discordgo.ApplicationCommandOptionChoice{Name: z.label, Value: z.name}
	})
}
