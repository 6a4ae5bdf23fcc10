// Command gotacauth-sim drives a scripted AUTHEN exchange against an
// in-process engine, acting as both the NAS and the transport. It is a
// smoke-test harness: point it at a YAML user file, give it a username
// and password, and watch the dialog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goTacAuth"
	"github.com/MrEthical07/goTacAuth/credential"
	"github.com/MrEthical07/goTacAuth/mavis"
)

type simConfig struct {
	Realm struct {
		Name          string `yaml:"name"`
		MavisUserDB   bool   `yaml:"mavis_user_db"`
		LoginPrefetch bool   `yaml:"login_prefetch"`
		ChPass        bool   `yaml:"chpass"`
	} `yaml:"realm"`
	Host struct {
		MaxAttempts   int    `yaml:"max_attempts"`
		WelcomeBanner string `yaml:"welcome_banner"`
		MOTD          string `yaml:"motd"`
		RejectBanner  string `yaml:"reject_banner"`
	} `yaml:"host"`
	Users []simUser `yaml:"users"`
}

type simUser struct {
	Name     string           `yaml:"name"`
	Password string           `yaml:"password"`
	Crypt    string           `yaml:"crypt"`
	Profile  string           `yaml:"profile"`
	MemberOf []string         `yaml:"member_of"`
	Enable   map[uint8]string `yaml:"enable"`
	Backend  bool             `yaml:"backend"`
}

type staticDirectory struct {
	users map[string]*goTacAuth.UserRecord
}

func (d *staticDirectory) LookupUser(_ context.Context, _ string, username string) (*goTacAuth.UserRecord, error) {
	return d.users[username], nil
}

// consoleWriter prints each reply and remembers the last status so the
// driver loop knows whether to answer a prompt or stop.
type consoleWriter struct {
	last goTacAuth.Reply
}

func (w *consoleWriter) WriteReply(_ context.Context, sessionID string, reply goTacAuth.Reply) error {
	fmt.Printf("<< [%s] status=%d noecho=%v\n", sessionID, reply.Status, reply.NoEcho)
	if reply.Message != "" {
		fmt.Printf("%s\n", reply.Message)
	}
	w.last = reply
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML user/realm file (optional)")
		username   = flag.String("user", "demo", "username to authenticate")
		password   = flag.String("password", "demo", "password to submit")
		redisAddr  = flag.String("redis-addr", "", "redis address; if empty, miniredis is used")
		throttleOn = flag.Bool("throttle", false, "enable the redis failure throttle")
	)
	flag.Parse()

	cfg := simConfig{}
	cfg.Realm.Name = "default"
	cfg.Host.MaxAttempts = 3
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
			os.Exit(1)
		}
	}
	if len(cfg.Users) == 0 {
		cfg.Users = []simUser{{Name: "demo", Password: "demo"}}
	}

	directory := &staticDirectory{users: make(map[string]*goTacAuth.UserRecord)}
	memory := mavis.NewMemoryModule()
	for _, u := range cfg.Users {
		if u.Backend {
			memory.Add(u.Name, mavis.MemoryUser{
				Password: u.Password,
				Profile:  u.Profile,
			})
			continue
		}
		rec := credential.Record{Kind: credential.KindClear, Value: u.Password}
		if u.Crypt != "" {
			rec = credential.Record{Kind: credential.KindCrypt, Value: u.Crypt}
		}
		user := &goTacAuth.UserRecord{
			Name:     u.Name,
			Profile:  u.Profile,
			MemberOf: u.MemberOf,
			Passwords: map[goTacAuth.Slot]credential.Record{
				goTacAuth.SlotLogin:  rec,
				goTacAuth.SlotPAP:    {Kind: credential.KindLogin},
				goTacAuth.SlotCHAP:   rec,
				goTacAuth.SlotMSCHAP: rec,
			},
		}
		if len(u.Enable) > 0 {
			user.Enable = make(map[uint8]credential.Record, len(u.Enable))
			for lvl, pw := range u.Enable {
				user.Enable[lvl] = credential.Record{Kind: credential.KindClear, Value: pw}
			}
		}
		directory.users[u.Name] = user
	}

	engineCfg := defaultedConfig(cfg, *throttleOn)

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	builder := goTacAuth.New().
		WithConfig(engineCfg).
		WithUserDirectory(directory).
		WithBackendChain(mavis.NewChain(memory)).
		WithLogger(logger).
		WithAuditSink(goTacAuth.NewJSONWriterSink(os.Stdout))

	if *throttleOn {
		addr := *redisAddr
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "miniredis: %v\n", err)
				os.Exit(1)
			}
			defer mr.Close()
			addr = mr.Addr()
			fmt.Printf("using miniredis at %s\n", addr)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		defer client.Close()
		builder = builder.WithRedis(client)
	}

	writer := &consoleWriter{}
	builder = builder.WithReplyWriter(writer)

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	const sid = "sim-1"

	fmt.Printf(">> START ascii login\n")
	if err := engine.HandleStart(ctx, sid, goTacAuth.StartPacket{
		Action:  goTacAuth.ActionLogin,
		Type:    goTacAuth.TypeASCII,
		Service: goTacAuth.ServiceLogin,
		Port:    "tty0",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < 8 && !writer.last.Status.Terminal(); i++ {
		var answer string
		switch writer.last.Status {
		case goTacAuth.ReplyGetUser:
			answer = *username
		case goTacAuth.ReplyGetPass, goTacAuth.ReplyGetData:
			answer = *password
		}
		fmt.Printf(">> CONTINUE %q\n", answer)
		if err := engine.HandleContinue(ctx, sid, goTacAuth.ContinuePacket{Message: answer}); err != nil {
			fmt.Fprintf(os.Stderr, "continue: %v\n", err)
			os.Exit(1)
		}
	}

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: %v\n", snap.Counters)
	if writer.last.Status == goTacAuth.ReplyPass {
		fmt.Println("authentication passed")
		return
	}
	fmt.Println("authentication failed")
	os.Exit(1)
}

func defaultedConfig(sim simConfig, throttleOn bool) goTacAuth.Config {
	cfg := goTacAuth.Config{}
	cfg.Realm.Name = sim.Realm.Name
	cfg.Realm.MavisUserDB = sim.Realm.MavisUserDB
	cfg.Realm.LoginPrefetch = sim.Realm.LoginPrefetch
	cfg.Realm.ChPass = sim.Realm.ChPass
	cfg.Host.MaxAttempts = sim.Host.MaxAttempts
	cfg.Host.WelcomeBanner = sim.Host.WelcomeBanner
	cfg.Host.MOTD = sim.Host.MOTD
	cfg.Host.RejectBanner = sim.Host.RejectBanner
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	cfg.Metrics.Enabled = true
	if throttleOn {
		cfg.Throttle.Enabled = true
		cfg.Throttle.RedisPrefix = "ta"
		cfg.Throttle.MaxFailures = 10
		cfg.Throttle.FailureWindow = 5 * time.Minute
	}
	return cfg
}
