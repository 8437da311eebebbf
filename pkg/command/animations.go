package command

import "sort"

// Named animations, expressed as step sequences over the SDK's preset
// movements. These correspond to the animations the bridge has always
// shipped: salute, wave, tada, hello and introduction.

type animation struct {
	description string
	steps       func(cmd Animation) []Step
}

var animations = map[string]animation{
	"salute": {
		description: "Raise the right hand to the forehead and back down",
		steps: func(Animation) []Step {
			return []Step{
				{Type: StepArms, Action: "preset", Position: "forward", Arms: "right"},
				{Type: StepHands, Action: "position", RightHand: "close"},
				{Type: StepWait, Duration: 1.0},
				{Type: StepArms, Action: "preset", Position: "out", Arms: "right"},
				{Type: StepHands, Action: "position", RightHand: "open"},
				{Type: StepWait, Duration: 1.0},
				{Type: StepArms, Action: "preset", Position: "down", Arms: "right"},
				{Type: StepHands, Action: "position", RightHand: "close"},
			}
		},
	},
	"wave": {
		description: "Wave the right arm",
		steps: func(Animation) []Step {
			return []Step{
				{Type: StepArms, Action: "preset", Position: "up", Arms: "right"},
				{Type: StepHands, Action: "position", RightHand: "open"},
				{Type: StepWait, Duration: 0.8},
				{Type: StepArms, Action: "preset", Position: "out", Arms: "right"},
				{Type: StepWait, Duration: 0.8},
				{Type: StepArms, Action: "preset", Position: "up", Arms: "right"},
				{Type: StepWait, Duration: 0.8},
				{Type: StepArms, Action: "preset", Position: "down", Arms: "right"},
				{Type: StepHands, Action: "position", RightHand: "close"},
			}
		},
	},
	"tada": {
		description: "Throw both arms up with lights and an exclamation",
		steps: func(cmd Animation) []Step {
			statement := cmd.Statement
			if statement == "" {
				statement = "Ta da!"
			}
			return []Step{
				{Type: StepHands, Action: "position", LeftHand: "close", RightHand: "close"},
				{Type: StepLEDs, Action: "off"},
				{Type: StepArms, Action: "preset", Position: "up", Arms: "both"},
				{Type: StepHands, Action: "position", LeftHand: "open", RightHand: "open"},
				{Type: StepLEDs, Action: "set", LEDs: map[string]string{
					"eyes": "#7ac5cd", "ears": "#7ac5cd", "chest": "#7ac5cd", "feet": "#7ac5cd",
				}},
				{Type: StepSpeech, Action: "say", Text: statement, Blocking: true},
				{Type: StepWait, Duration: 1.0},
				{Type: StepArms, Action: "preset", Position: "down", Arms: "both"},
				{Type: StepHands, Action: "position", LeftHand: "close", RightHand: "open"},
				{Type: StepLEDs, Action: "off"},
			}
		},
	},
	"hello": {
		description: "Stand, wave and greet",
		steps: func(Animation) []Step {
			return []Step{
				{Type: StepPosture, Action: "stand", Speed: 0.5},
				{Type: StepArms, Action: "preset", Position: "up", Arms: "right"},
				{Type: StepHands, Action: "position", RightHand: "open"},
				{Type: StepSpeech, Action: "say", Text: "Hello! Nice to meet you!", Blocking: true},
				{Type: StepArms, Action: "preset", Position: "down", Arms: "both"},
				{Type: StepHands, Action: "position", LeftHand: "close", RightHand: "close"},
			}
		},
	},
	"introduction": {
		description: "Demonstrate arms, head and LEDs with narration",
		steps: func(Animation) []Step {
			return []Step{
				{Type: StepPosture, Action: "stand", Speed: 0.5},
				{Type: StepSpeech, Action: "say", Text: "Hello, I am NAO robot!", Blocking: true},
				{Type: StepArms, Action: "preset", Position: "up", Arms: "both"},
				{Type: StepHands, Action: "position", LeftHand: "open", RightHand: "open"},
				{Type: StepSpeech, Action: "say", Text: "I can move my arms and hands", Blocking: true},
				{Type: StepHead, Action: "position", Yaw: -30},
				{Type: StepWait, Duration: 0.5},
				{Type: StepHead, Action: "position", Yaw: 30},
				{Type: StepWait, Duration: 0.5},
				{Type: StepHead, Action: "position", Yaw: 0},
				{Type: StepSpeech, Action: "say", Text: "I can turn my head", Blocking: true},
				{Type: StepLEDs, Action: "set", LEDs: map[string]string{"eyes": "#ff0000"}},
				{Type: StepWait, Duration: 1.0},
				{Type: StepLEDs, Action: "set", LEDs: map[string]string{"eyes": "#00ff00"}},
				{Type: StepWait, Duration: 1.0},
				{Type: StepLEDs, Action: "set", LEDs: map[string]string{"eyes": "#0000ff"}},
				{Type: StepWait, Duration: 1.0},
				{Type: StepLEDs, Action: "off"},
				{Type: StepSpeech, Action: "say", Text: "And I can control my LED lights", Blocking: true},
				{Type: StepArms, Action: "preset", Position: "down", Arms: "both"},
				{Type: StepHands, Action: "position", LeftHand: "close", RightHand: "close"},
				{Type: StepSpeech, Action: "say", Text: "Thank you for watching!", Blocking: true},
			}
		},
	},
}

// AnimationInfo describes one registered animation.
type AnimationInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Animations lists the registered animations sorted by name.
func Animations() []AnimationInfo {
	out := make([]AnimationInfo, 0, len(animations))
	for name, anim := range animations {
		out = append(out, AnimationInfo{Name: name, Description: anim.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
