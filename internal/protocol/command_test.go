package protocol

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Stop{}, "stop"},
		{Start{}, "start"},
		{Reset{}, "reset"},
		{SetRate{Millis: 100}, "set_rate:100"},
		{SetRate{Millis: -7}, "set_rate:-7"},
		{SetAccelNoiseFloor{Value: "0.5"}, "set_accel_noise_floor:0.5"},
		{SetAccelNoiseFloor{Value: "abc"}, "set_accel_noise_floor:abc"},
		{SetMPUConfig{Value: "0,0,3,0"}, "set_mpu6050_config:0,0,3,0"},
		{SetMPUConfig{Value: ""}, "set_mpu6050_config:"},
	}
	for _, tt := range tests {
		if got := Encode(tt.cmd); got != tt.want {
			t.Fatalf("Encode(%#v) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"stop", Stop{}},
		{"start\n", Start{}},
		{"reset", Reset{}},
		{"set_rate:250", SetRate{Millis: 250}},
		{"set_accel_noise_floor:0.75", SetAccelNoiseFloor{Value: "0.75"}},
		{"set_mpu6050_config:1,2,3,4", SetMPUConfig{Value: "1,2,3,4"}},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.line)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", tt.line, err)
		}
		if got != tt.want {
			t.Fatalf("ParseCommand(%q) = %#v, want %#v", tt.line, got, tt.want)
		}
	}

	for _, bad := range []string{"jump", "set_rate:fast", ""} {
		if _, err := ParseCommand(bad); err == nil {
			t.Fatalf("ParseCommand(%q) succeeded", bad)
		}
	}
}

func TestParseMPUConfig(t *testing.T) {
	cfg, err := ParseMPUConfig("0, 1,3,7")
	if err != nil {
		t.Fatalf("ParseMPUConfig: %v", err)
	}
	if cfg != (MPUConfig{AccelRange: 0, GyroRange: 1, DLPF: 3, SampleRateDiv: 7}) {
		t.Fatalf("got %+v", cfg)
	}
	for _, bad := range []string{"0,0,3", "a,b,c,d", "1,2,3,4,5"} {
		if _, err := ParseMPUConfig(bad); err == nil {
			t.Fatalf("ParseMPUConfig(%q) succeeded", bad)
		}
	}
}
