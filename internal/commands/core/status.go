package core

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

var startedAt = time.Now()

func init() {
	command.DefaultRegistry.MustRegister(
		command.New("status").
			Description("Show host and process health").
			Category("🛠️ Maintenance").
			Cooldown(10 * time.Second).
			Run(status).
			MustBuild(),
	)
}

func status(ctx context.Context, inv *command.Invocation) error {
	// cpu.Percent samples for a second
	if err := inv.Reply.Acknowledge(ctx); err != nil {
		return err
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Uptime", Value: time.Since(startedAt).Round(time.Second).String(), Inline: true},
		{Name: "Goroutines", Value: fmt.Sprint(runtime.NumGoroutine()), Inline: true},
		{Name: "Jobs", Value: current().Jobs.Status(), Inline: false},
	}

	if pct, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(pct) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "CPU", Value: fmt.Sprintf("%.1f%%", pct[0]), Inline: true})
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Memory",
			Value:  fmt.Sprintf("%.1f%% of %s", vm.UsedPercent, formatBytes(vm.Total)),
			Inline: true,
		})
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Host",
			Value: fmt.Sprintf("%s %s (%s), up %s", info.Platform, info.PlatformVersion, info.KernelArch, (time.Duration(info.Uptime) * time.Second).String()),
		})
	}

	return inv.Reply.Edit(ctx, &command.Response{Embeds: []*discordgo.MessageEmbed{{
		Title:  "Status",
		Fields: fields,
	}}})
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
