package app

import "worldview/engine/params"

// registerDefaults declares every parameter the system reads. Values already
// loaded from a file or the command line are kept.
func registerDefaults(p *params.Set) {
	p.AddDefault("Renderer.FramePerSecMax", "20",
		"Target frames per second for the standalone loop (2..100)")
	p.AddDefault("Renderer.BetweenFrame.WorkItems", "3",
		"Work items drained per batch while the standalone loop has budget left")
	p.AddDefault("Renderer.BetweenFrame.StepWorkItems", "20",
		"Work items drained per batch when the host window drives frames")
	p.AddDefault("Renderer.BetweenFrame.IdleMs", "10",
		"Remaining frame budget below which no more work is attempted")
	p.AddDefault("Renderer.BetweenFrame.Costs.MapRegion", "50",
		"Relative cost of mapping a region into the scene")
	p.AddDefault("Renderer.BetweenFrame.Costs.UpdateTerrain", "50",
		"Relative cost of rebuilding a terrain mesh")
	p.AddDefault("Renderer.BetweenFrame.TerrainRetries", "100",
		"Times a terrain update waits for its region root before it is dropped")
	p.AddDefault("Renderer.SceneMagnification", "1",
		"Scale from world units to render units")
	p.AddDefault("Renderer.MeshResolution", "16",
		"Maximum terrain grid cells per region side")
	p.AddDefault("Renderer.MaxMeshes", "256",
		"Scene mesh capacity")
	p.AddDefault("Renderer.Ambient", "<0.4,0.4,0.4>",
		"Ambient light color")
	p.AddDefault("Renderer.Mode", "vertex-color",
		"Rasterization mode: wireframe, flat or vertex-color")
	p.AddDefault("Renderer.HUD.Enabled", "true",
		"Draw the statistics HUD")
	p.AddDefault("Renderer.Console.Enabled", "true",
		"Draw the log console strip")
	p.AddDefault("Renderer.Console.Lines", "5",
		"Log console height in text lines")

	p.AddDefault("Stats.Addr", "",
		"Listen address for the statistics HTTP endpoint, empty to disable")
	p.AddDefault("Stats.PushMs", "1000",
		"Statistics websocket push interval in milliseconds")

	p.AddDefault("Feed.MQTT.Broker", "",
		"MQTT broker (host:port or URL) to receive regions from, empty to disable")
	p.AddDefault("Feed.MQTT.Prefix", "worldview",
		"MQTT topic prefix")
	p.AddDefault("Feed.MQTT.QoS", "1",
		"MQTT subscription QoS")
	p.AddDefault("Feed.Demo.Enabled", "false",
		"Populate a simulated world far from the origin")
	p.AddDefault("Feed.Demo.Columns", "3",
		"Demo grid columns")
	p.AddDefault("Feed.Demo.Rows", "3",
		"Demo grid rows")
	p.AddDefault("Feed.Demo.Samples", "33",
		"Demo heightmap samples per region side")
	p.AddDefault("Feed.Demo.Water", "18",
		"Demo water height on alternate cells, -1 for none")
	p.AddDefault("Feed.Demo.FocusSeconds", "5",
		"Seconds between demo focus moves")
}
