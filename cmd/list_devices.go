package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli"
)

// List the CPUs available for rendering.
func ListDevices(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	infos, err := cpu.Info()
	if err != nil {
		return err
	}
	logical, err := cpu.Counts(true)
	if err != nil {
		return err
	}
	physical, err := cpu.Counts(false)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Socket", "Model", "Cores", "MHz"})
	for idx, info := range infos {
		table.Append([]string{
			fmt.Sprintf("%02d", idx),
			info.ModelName,
			fmt.Sprint(info.Cores),
			fmt.Sprintf("%.0f", info.Mhz),
		})
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d/%d", physical, logical), ""})
	table.Render()

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(&buf, "memory: %d MB available of %d MB\n", vm.Available>>20, vm.Total>>20)
	}

	logger.Noticef("system provides %d logical cpu(s); the renderer uses one tracer per logical cpu by default\n%s", logical, buf.String())
	return nil
}
